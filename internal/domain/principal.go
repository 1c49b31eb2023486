package domain

import "slices"

// Role is an access level granted to an account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleControl Role = "control"
	RoleUser    Role = "user"
	RoleNone    Role = "none"
)

// RoleFromPermission maps a stored permission value to a role.
// Unknown or empty permissions carry no access.
func RoleFromPermission(permission string) Role {
	switch Role(permission) {
	case RoleAdmin, RoleControl, RoleUser:
		return Role(permission)
	default:
		return RoleNone
	}
}

// Principal represents an authenticated caller.
type Principal struct {
	ID    string
	Roles []Role
}

// HasRole reports whether the principal has the given role.
func (p Principal) HasRole(r Role) bool {
	return slices.Contains(p.Roles, r)
}

// HasAnyRole reports whether the principal has at least one of roles.
func (p Principal) HasAnyRole(roles ...Role) bool {
	return slices.ContainsFunc(roles, p.HasRole)
}

// Disabled reports whether the principal holds role none or no role at all.
func (p Principal) Disabled() bool {
	return len(p.Roles) == 0 || p.HasRole(RoleNone)
}
