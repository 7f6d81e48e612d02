package auth

import (
	"context"
	"slices"
)

// Role is a closed set of organisational roles carried in bearer tokens.
type Role int

const (
	RoleSuperAdmin Role = iota + 1
	RoleSystemAdmin
	RoleIntakeOfficer
	RoleInvestigator
	RoleForensicAnalyst
	RoleProsecutor
)

var roleNames = map[Role]string{
	RoleSuperAdmin:      "SuperAdmin",
	RoleSystemAdmin:     "SystemAdmin",
	RoleIntakeOfficer:   "IntakeOfficer",
	RoleInvestigator:    "Investigator",
	RoleForensicAnalyst: "ForensicAnalyst",
	RoleProsecutor:      "Prosecutor",
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "Unknown"
}

// ParseRole maps a token role name to a Role. Names are case-sensitive.
func ParseRole(name string) (Role, bool) {
	for r, n := range roleNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// ParseRoles keeps the known role names and drops the rest.
func ParseRoles(names []string) []Role {
	var roles []Role
	for _, n := range names {
		if r, ok := ParseRole(n); ok && !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}
	return roles
}

var (
	// UploadRoles may add evidence versions.
	UploadRoles = []Role{RoleInvestigator, RoleForensicAnalyst, RoleSystemAdmin, RoleSuperAdmin}
	// ReadRoles may list, search and download evidence.
	ReadRoles = []Role{RoleInvestigator, RoleForensicAnalyst, RoleProsecutor, RoleSystemAdmin, RoleSuperAdmin}
)

// Identity is the authenticated caller.
type Identity struct {
	UserID   string
	UserName string
	Roles    []Role
}

// HasAnyRole reports whether the identity holds at least one of roles.
func (i Identity) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if slices.Contains(i.Roles, r) {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
