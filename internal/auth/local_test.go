package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/db"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

func TestLocalProvider(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)

	ctx := context.Background()
	p := auth.NewLocalProvider(database)

	u := &models.User{Name: "Jane", Email: "  Jane@Example.com ", Active: true}
	require.NoError(t, p.Provision(ctx, database, u, "s3cret-pass"))
	assert.Equal(t, "jane@example.com", u.Email)
	assert.NotEqual(t, "s3cret-pass", u.Password)

	dup := &models.User{Name: "Jane 2", Email: "jane@example.com", Active: true}
	require.ErrorIs(t, p.Provision(ctx, database, dup, ""), auth.ErrEmailInUse)

	got, err := p.Authenticate(ctx, "JANE@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = p.Authenticate(ctx, "jane@example.com", "wrong")
	require.ErrorIs(t, err, auth.ErrInvalidPassword)

	_, err = p.Authenticate(ctx, "nobody@example.com", "s3cret-pass")
	require.ErrorIs(t, err, auth.ErrUserNotFound)

	require.NoError(t, p.SetPassword(ctx, nil, u.ID, "another-pass"))
	_, err = p.Authenticate(ctx, "jane@example.com", "another-pass")
	require.NoError(t, err)

	require.ErrorIs(t, p.SetPassword(ctx, nil, "missing", "another-pass"), auth.ErrUserNotFound)

	require.NoError(t, database.Model(&models.User{}).Where("id = ?", u.ID).Update("active", false).Error)
	_, err = p.Authenticate(ctx, "jane@example.com", "another-pass")
	require.ErrorIs(t, err, auth.ErrUserAccountDisabled)

	loaded, err := p.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Active)

	_, err = p.GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestProvisionWithoutPassword(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)

	ctx := context.Background()
	p := auth.NewLocalProvider(database)

	u := &models.User{Name: "Invitee", Email: "invitee@example.com", Active: true}
	require.NoError(t, p.Provision(ctx, database, u, ""))
	assert.Empty(t, u.Password)

	_, err = p.Authenticate(ctx, "invitee@example.com", "")
	require.ErrorIs(t, err, auth.ErrInvalidPassword)
}
