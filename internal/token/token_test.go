package token

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/db"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.OpenMemory()
	require.NoError(t, err)

	return NewStore(database, time.Hour)
}

func TestIssueAndConsume(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	plain, err := s.Issue(ctx, nil, "u-1")
	require.NoError(t, err)
	assert.Len(t, plain, 2*tokenBytes)

	var row models.PasswordSetupToken
	require.NoError(t, s.db.First(&row).Error)
	assert.NotEqual(t, plain, row.TokenHash, "plain tokens are never stored")

	userID, err := s.Consume(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)

	_, err = s.Consume(ctx, plain)
	require.ErrorIs(t, err, ErrTokenInvalid, "tokens are single use")

	_, err = s.Consume(ctx, "")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssueReplacesPreviousToken(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first, err := s.Issue(ctx, nil, "u-1")
	require.NoError(t, err)

	second, err := s.Issue(ctx, nil, "u-1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = s.Consume(ctx, first)
	require.ErrorIs(t, err, ErrTokenInvalid)

	userID, err := s.Consume(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
}

func TestExpiredTokens(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	expiring, err := s.Issue(ctx, nil, "u-1")
	require.NoError(t, err)

	_, err = s.Issue(ctx, nil, "u-2")
	require.NoError(t, err)

	s.now = func() time.Time { return now.Add(2 * time.Hour) }

	_, err = s.Consume(ctx, expiring)
	require.ErrorIs(t, err, ErrTokenExpired)

	_, err = s.Consume(ctx, expiring)
	require.ErrorIs(t, err, ErrTokenInvalid, "expired tokens are removed")

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestExpiredTokenCleanupFailureIsLogged(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	plain, err := s.Issue(ctx, nil, "u-1")
	require.NoError(t, err)

	// the delete inside the consume transaction succeeds, the cleanup after its rollback fails
	deletes := 0
	require.NoError(t, s.db.Callback().Delete().Before("gorm:delete").Register("test:fail_cleanup", func(tx *gorm.DB) {
		deletes++
		if deletes > 1 {
			_ = tx.AddError(errCleanup)
		}
	}))

	var buf bytes.Buffer

	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })

	s.now = func() time.Time { return now.Add(2 * time.Hour) }

	_, err = s.Consume(ctx, plain)
	require.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, 2, deletes)
	assert.Contains(t, buf.String(), "failed to delete expired password setup token")
	assert.Contains(t, buf.String(), errCleanup.Error())
}

var errCleanup = errors.New("disk full")
