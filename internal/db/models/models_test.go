package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextKeyOf(t *testing.T) {
	id := "7d9a"
	assert.Equal(t, CentralKey, ContextKeyOf(nil))
	assert.Equal(t, id, ContextKeyOf(&id))
}

func TestSameTenant(t *testing.T) {
	a, b, c := "a", "a", "c"

	assert.True(t, SameTenant(nil, nil))
	assert.True(t, SameTenant(&a, &b))
	assert.False(t, SameTenant(&a, &c))
	assert.False(t, SameTenant(nil, &a))
	assert.False(t, SameTenant(&a, nil))
}

func TestNewUserRole(t *testing.T) {
	tenantID := "t1"
	protected := &Role{ID: "r1", Key: RoleTenantSuperadmin, TenantID: &tenantID}
	plain := &Role{ID: "r2", Key: "editor", TenantID: &tenantID}

	ur := NewUserRole("u1", protected, &tenantID)
	require.NotNil(t, ur.SingletonKey)
	assert.Equal(t, "tenant_superadmin:t1", *ur.SingletonKey)
	assert.Equal(t, "t1", ur.ContextKey)
	assert.NotEmpty(t, ur.ID)

	ur = NewUserRole("u1", plain, &tenantID)
	assert.Nil(t, ur.SingletonKey)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	u := User{Password: hash}
	assert.True(t, u.VerifyPassword("correct horse"))
	assert.False(t, u.VerifyPassword("wrong"))

	empty := User{}
	assert.False(t, empty.VerifyPassword(""))
}
