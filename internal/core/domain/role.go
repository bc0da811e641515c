package domain

import "strings"

// RoleName is one of the fixed authorities a user can hold. The set is closed:
// roles are seeded with the schema and never created at runtime.
type RoleName string

const (
	RoleUser      RoleName = "ROLE_USER"
	RoleModerator RoleName = "ROLE_MODERATOR"
	RoleAdmin     RoleName = "ROLE_ADMIN"
)

// DefaultRole is assigned when a signup requests no roles.
const DefaultRole = RoleUser

// Role is a persisted role record.
type Role struct {
	ID   int64    `json:"id"`
	Name RoleName `json:"name"`
}

// IsValid reports whether r belongs to the closed role set.
func (r RoleName) IsValid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r RoleName) String() string { return string(r) }

// AllRoles returns every known role, lowest privilege first.
func AllRoles() []RoleName {
	return []RoleName{RoleUser, RoleModerator, RoleAdmin}
}

// ParseRoleName maps a client supplied role to a RoleName. Short aliases
// ("user", "mod", "moderator", "admin") and the full ROLE_* names are accepted,
// case-insensitively.
func ParseRoleName(s string) (RoleName, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "role_user":
		return RoleUser, true
	case "mod", "moderator", "role_moderator":
		return RoleModerator, true
	case "admin", "role_admin":
		return RoleAdmin, true
	default:
		return "", false
	}
}
