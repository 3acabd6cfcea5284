package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImplies(t *testing.T) {
	tests := []struct {
		granted  string
		required string
		want     bool
	}{
		{PermUsersCreate, PermUsersCreate, true},
		{PermManageUsers, PermUsersCreate, true},
		{PermManageUsers, PermUsersToggleActive, true},
		{PermManageUsers, PermRolesCreate, false},
		{PermManageRoles, PermPermissionsDelete, true},
		{PermManageRoles, PermUsersDelete, false},
		{PermManageSecurity, PermManageUsers, true},
		{PermManageSecurity, PermUsersDelete, true},
		{PermManageSecurity, PermPermissionsCreate, true},
		{PermManageSecurity, PermTenantsCreate, false},
		{PermManageTenants, PermTenantsCreate, true},
		{PermUsersCreate, PermManageUsers, false},
		{"reports.view", "reports.export", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Implies(tt.granted, tt.required), "%s => %s", tt.granted, tt.required)
	}
}

func TestKeyPolicy(t *testing.T) {
	p := NewKeyPolicy("billing.manage")

	assert.True(t, p.IsCentralOnly(PermManageTenants))
	assert.True(t, p.IsCentralOnly(PermManageSecurity))
	assert.True(t, p.IsCentralOnly(PermTenantsCreate))
	assert.True(t, p.IsCentralOnly("billing.manage"))
	assert.False(t, p.IsCentralOnly(PermManageUsers))
	assert.False(t, p.IsCentralOnly("tenantsx.view"))

	var zero KeyPolicy
	assert.True(t, zero.IsCentralOnly(PermManageTenants))
	assert.False(t, zero.IsCentralOnly("billing.manage"))
}

func TestPermissionSet(t *testing.T) {
	s := NewPermissionSet(PermManageUsers, PermRolesView)

	assert.True(t, s.Has(PermManageUsers))
	assert.False(t, s.Has(PermUsersCreate))
	assert.True(t, s.Allows(PermUsersCreate))
	assert.False(t, s.Allows(PermRolesCreate))
	assert.True(t, s.AllowsAny(PermRolesCreate, PermRolesView))
	assert.False(t, s.AllowsAny())
	assert.Equal(t, []string{PermManageUsers, PermRolesView}, s.Keys())

	c := s.clone()
	delete(c, PermRolesView)
	assert.True(t, s.Has(PermRolesView))
}

func TestCatalogKeysAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range Catalog {
		assert.False(t, seen[e.Key], "duplicate %s", e.Key)
		assert.NotEmpty(t, e.Name)
		seen[e.Key] = true
	}
}
