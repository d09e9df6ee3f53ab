package permission

import (
	"maps"
	"slices"
)

// Wildcard grants every tool to a role.
const Wildcard = "*"

// ToolSet is the set of tool names a role may use.
type ToolSet struct {
	all   bool
	names map[string]struct{}
}

// AllTools returns the wildcard set.
func AllTools() ToolSet {
	return ToolSet{all: true}
}

// Tools returns a finite set. A name equal to Wildcard makes it the wildcard set.
func Tools(names ...string) ToolSet {
	s := ToolSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n == Wildcard {
			return AllTools()
		}
		if n == "" {
			continue
		}
		s.names[n] = struct{}{}
	}
	return s
}

// Contains reports whether name is in the set.
func (s ToolSet) Contains(name string) bool {
	if s.all {
		return true
	}
	_, ok := s.names[name]
	return ok
}

// IsWildcard reports whether the set grants every tool.
func (s ToolSet) IsWildcard() bool {
	return s.all
}

// Names returns the sorted explicit names, or ["*"] for the wildcard set.
func (s ToolSet) Names() []string {
	if s.all {
		return []string{Wildcard}
	}
	return slices.Sorted(maps.Keys(s.names))
}

// Map is an immutable role-to-ToolSet table.
//
// Contract:
// - Concurrency: safe for concurrent use; never mutated after construction.
// - Unknown roles map to the empty set.
type Map struct {
	roles map[Role]ToolSet
}

// NewMap copies roles into a new Map.
func NewMap(roles map[Role]ToolSet) *Map {
	m := &Map{roles: make(map[Role]ToolSet, len(roles))}
	for r, s := range roles {
		m.roles[r] = s
	}
	return m
}

// DefaultMap returns the deployed permission table.
func DefaultMap() *Map {
	return NewMap(map[Role]ToolSet{
		RoleAdmin: AllTools(),
		RoleUser:  Tools("retrieve_doc", "list_tools"),
		RoleGuest: Tools(),
	})
}

// IsAllowed reports whether role may invoke tool. Only the bare tool name is
// consulted; the target prefix never affects the decision.
func (m *Map) IsAllowed(role Role, tool ToolID) bool {
	if m == nil || tool.Name == "" {
		return false
	}
	set, ok := m.roles[role]
	if !ok {
		return false
	}
	return set.Contains(tool.Name)
}

// ToolsFor returns the set granted to role; the empty set for unknown roles.
func (m *Map) ToolsFor(role Role) ToolSet {
	if m == nil {
		return ToolSet{}
	}
	return m.roles[role]
}

// Roles returns the configured roles in sorted order.
func (m *Map) Roles() []Role {
	if m == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(m.roles))
}
