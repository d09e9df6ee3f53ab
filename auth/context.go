package auth

import "context"

type contextKey int

const (
	authContextKey contextKey = iota
	rawTokenKey
)

// WithAuthContext returns a new context carrying ac.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// FromContext retrieves the AuthContext, or nil when none is attached.
func FromContext(ctx context.Context) *AuthContext {
	ac, _ := ctx.Value(authContextKey).(*AuthContext)
	return ac
}

// TenantIDFromContext returns the tenant of the attached AuthContext.
func TenantIDFromContext(ctx context.Context) string {
	ac := FromContext(ctx)
	if ac == nil {
		return ""
	}
	return ac.TenantID
}

// WithRawToken attaches the verified compact token, for callers that need to
// forward it to a downstream decision service.
func WithRawToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, rawTokenKey, token)
}

// RawTokenFromContext returns the token attached by WithRawToken.
func RawTokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(rawTokenKey).(string)
	return s
}
