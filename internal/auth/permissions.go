package auth

import (
	"sort"
	"strings"
)

// Permission keys known to the core. Fine grained keys are implied by the manage_* keys,
// see Implies.
const (
	// PermManageUsers implies every users.* key.
	PermManageUsers = "manage_users"
	// PermManageRoles implies every roles.* and permissions.* key.
	PermManageRoles = "manage_roles"
	// PermManageSecurity implies manage_users and manage_roles. Central only.
	PermManageSecurity = "manage_security"
	// PermManageTenants implies every tenants.* key. Central only.
	PermManageTenants = "manage_tenants"

	PermUsersView         = "users.view"
	PermUsersCreate       = "users.create"
	PermUsersUpdate       = "users.update"
	PermUsersDelete       = "users.delete"
	PermUsersToggleActive = "users.toggle_active"

	PermRolesView   = "roles.view"
	PermRolesCreate = "roles.create"
	PermRolesUpdate = "roles.update"
	PermRolesDelete = "roles.delete"

	PermPermissionsView   = "permissions.view"
	PermPermissionsCreate = "permissions.create"
	PermPermissionsUpdate = "permissions.update"
	PermPermissionsDelete = "permissions.delete"

	PermTenantsView   = "tenants.view"
	PermTenantsCreate = "tenants.create"
)

// CatalogEntry is a permission seeded at bootstrap.
type CatalogEntry struct {
	Key  string
	Name string
}

// Catalog lists the global permissions every installation starts with.
var Catalog = []CatalogEntry{ //nolint:gochecknoglobals
	{PermManageSecurity, "Manage security"},
	{PermManageTenants, "Manage tenants"},
	{PermManageUsers, "Manage users"},
	{PermManageRoles, "Manage roles"},
	{PermUsersView, "View users"},
	{PermUsersCreate, "Create users"},
	{PermUsersUpdate, "Update users"},
	{PermUsersDelete, "Delete users"},
	{PermUsersToggleActive, "Activate or deactivate users"},
	{PermRolesView, "View roles"},
	{PermRolesCreate, "Create roles"},
	{PermRolesUpdate, "Update roles"},
	{PermRolesDelete, "Delete roles"},
	{PermPermissionsView, "View permissions"},
	{PermPermissionsCreate, "Create permissions"},
	{PermPermissionsUpdate, "Update permissions"},
	{PermPermissionsDelete, "Delete permissions"},
	{PermTenantsView, "View tenants"},
	{PermTenantsCreate, "Create tenants"},
}

// implied maps a key to the key prefixes and keys it grants. Prefixes end with a dot.
var implied = map[string][]string{ //nolint:gochecknoglobals
	PermManageUsers:    {"users."},
	PermManageRoles:    {"roles.", "permissions."},
	PermManageSecurity: {PermManageUsers, PermManageRoles, "users.", "roles.", "permissions."},
	PermManageTenants:  {"tenants."},
}

// Implies reports whether holding granted satisfies a requirement for required.
func Implies(granted, required string) bool {
	if granted == required {
		return true
	}

	for _, g := range implied[granted] {
		if g == required || (strings.HasSuffix(g, ".") && strings.HasPrefix(required, g)) {
			return true
		}
	}

	return false
}

// KeyPolicy decides which permission keys are reserved for the central context.
type KeyPolicy struct {
	extra map[string]struct{}
}

// NewKeyPolicy returns the built in policy extended by extra keys.
func NewKeyPolicy(extra ...string) KeyPolicy {
	p := KeyPolicy{extra: make(map[string]struct{}, len(extra))}
	for _, k := range extra {
		p.extra[strings.TrimSpace(k)] = struct{}{}
	}

	return p
}

// IsCentralOnly reports whether key may never be granted to a tenant role or owned by a tenant.
func (p KeyPolicy) IsCentralOnly(key string) bool {
	switch {
	case key == PermManageTenants, key == PermManageSecurity, strings.HasPrefix(key, "tenants."):
		return true
	}

	_, ok := p.extra[key]

	return ok
}

// PermissionSet is the set of permission keys a user holds in one context.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from keys.
func NewPermissionSet(keys ...string) PermissionSet {
	s := make(PermissionSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}

	return s
}

// Has reports whether key is literally in the set.
func (s PermissionSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Allows reports whether the set satisfies key, taking Implies into account.
func (s PermissionSet) Allows(key string) bool {
	if s.Has(key) {
		return true
	}

	for granted := range s {
		if Implies(granted, key) {
			return true
		}
	}

	return false
}

// AllowsAny reports whether at least one of keys is allowed.
func (s PermissionSet) AllowsAny(keys ...string) bool {
	for _, k := range keys {
		if s.Allows(k) {
			return true
		}
	}

	return false
}

// Keys returns the sorted keys.
func (s PermissionSet) Keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}

func (s PermissionSet) clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}

	return out
}
