package identity

import (
	"strings"

	"github.com/retail/backend/internal/domain/shared"
)

// Role is one level of the closed role hierarchy STAFF < ADMIN < SUPER_ADMIN
type Role string

const (
	RoleStaff      Role = "STAFF"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// AllRoles returns every role, lowest rank first
func AllRoles() []Role {
	return []Role{RoleStaff, RoleAdmin, RoleSuperAdmin}
}

// ParseRole converts an external role string (token claim, request body) into a Role
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.NewValidationError("unknown role %q", s)
	}
	return r, nil
}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleStaff, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Rank orders roles; an unknown role ranks below STAFF
func (r Role) Rank() int {
	switch r {
	case RoleStaff:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	}
	return 0
}

// AtLeast reports whether r is at or above other in the hierarchy
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank() && r.IsValid()
}

func (r Role) String() string {
	return string(r)
}

// IsSuperAdmin reports whether r is the most privileged role
func IsSuperAdmin(r Role) bool {
	return r == RoleSuperAdmin
}

// IsAdmin is true for ADMIN and SUPER_ADMIN
func IsAdmin(r Role) bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// CanManageRoles is reserved to SUPER_ADMIN
func CanManageRoles(r Role) bool {
	return HasPermission(r, PermUsersManageRoles)
}

// CanAccessAdminPages gates the administrative screens (settings, users, expenses)
func CanAccessAdminPages(r Role) bool {
	return IsAdmin(r)
}
