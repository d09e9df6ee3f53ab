package permission

// Role is the coarse-grained role carried in a verified token.
type Role string

// Deployed roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// DefaultRole is assigned when a token carries no role claim.
const DefaultRole = RoleGuest

func (r Role) String() string {
	return string(r)
}
