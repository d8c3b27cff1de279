package identity

import (
	"sort"
	"strings"

	"github.com/dbcb2b/backend/internal/domain/shared"
)

// Role is the account role carried by an access token
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// ParseRole parses a role name case-insensitively
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return "", shared.NewDomainError("INVALID_ROLE", "Unknown role: "+raw)
	}
	return r, nil
}

// Permission is a functional permission in resource:action form
type Permission string

const (
	PermCatalogRead   Permission = "catalog:read"
	PermCatalogWrite  Permission = "catalog:write"
	PermCatalogImport Permission = "catalog:import"

	PermOrderReadOwn    Permission = "order:read:own"
	PermOrderReadAll    Permission = "order:read:all"
	PermOrderCreate     Permission = "order:create"
	PermOrderUpdateOwn  Permission = "order:update:own"
	PermOrderUpdateAll  Permission = "order:update:all"
	PermOrderDeleteOwn  Permission = "order:delete:own"
	PermOrderDeleteAll  Permission = "order:delete:all"
	PermOrderValidate   Permission = "order:validate"
	PermOrderUnitImport Permission = "order:units:import"
	PermOrderShip       Permission = "order:ship"
)

// AllPermissions lists every permission
var AllPermissions = []Permission{
	PermCatalogRead, PermCatalogWrite, PermCatalogImport,
	PermOrderReadOwn, PermOrderReadAll,
	PermOrderCreate,
	PermOrderUpdateOwn, PermOrderUpdateAll,
	PermOrderDeleteOwn, PermOrderDeleteAll,
	PermOrderValidate, PermOrderUnitImport, PermOrderShip,
}

var rolePermissions = map[Role]map[Permission]struct{}{
	RoleAdmin: permissionSet(AllPermissions...),
	RoleClient: permissionSet(
		PermCatalogRead,
		PermOrderReadOwn,
		PermOrderCreate,
		PermOrderUpdateOwn,
		PermOrderDeleteOwn,
		PermOrderValidate,
	),
}

func permissionSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Resource returns the part before the first colon
func (p Permission) Resource() string {
	res, _, _ := strings.Cut(string(p), ":")
	return res
}

// IsOwnScoped reports whether the permission only covers the caller's own records
func (p Permission) IsOwnScoped() bool {
	return strings.HasSuffix(string(p), ":own")
}

// AllScoped returns the ":all" counterpart of an own-scoped permission
func (p Permission) AllScoped() Permission {
	if !p.IsOwnScoped() {
		return p
	}
	return Permission(strings.TrimSuffix(string(p), ":own") + ":all")
}

// HasPermission reports whether the role grants perm
func (r Role) HasPermission(perm Permission) bool {
	_, ok := rolePermissions[r][perm]
	return ok
}

// Permissions returns the permissions granted to the role, sorted
func (r Role) Permissions() []Permission {
	out := make([]Permission, 0, len(rolePermissions[r]))
	for p := range rolePermissions[r] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionCodes returns the role permissions as strings for token claims
func (r Role) PermissionCodes() []string {
	perms := r.Permissions()
	codes := make([]string, len(perms))
	for i, p := range perms {
		codes[i] = string(p)
	}
	return codes
}
