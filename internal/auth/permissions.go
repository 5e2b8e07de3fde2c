package auth

import "slices"

// Permission represents a named capability in the system.
type Permission string

// Permission constants.
const (
	// PermServerRead allows reading entities, states, services, properties,
	// tags and versions of the configured Home Assistant servers.
	PermServerRead Permission = "server.read"

	// PermSystemRead allows reading the runtime and connection summary.
	PermSystemRead Permission = "system.read"
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {PermServerRead},
	RoleAdmin:  {PermServerRead, PermSystemRead},
	RoleOwner:  {PermServerRead, PermSystemRead},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}
