// Package token issues and consumes single use password setup tokens.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

// 32 bytes = 256 bits
const tokenBytes = 32

var (
	// ErrTokenInvalid is returned for unknown or already used tokens.
	ErrTokenInvalid = errors.New("invalid setup token")
	// ErrTokenExpired is returned for tokens past their expiry. The token is removed.
	ErrTokenExpired = errors.New("setup token expired")
)

// Store persists the hashes of issued tokens. A user has at most one active token.
type Store struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewStore creates a token store issuing tokens valid for ttl.
func NewStore(db *gorm.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl, now: time.Now}
}

// Issue creates a token for userID inside tx, replacing any previous one, and returns the plain token.
func (s *Store) Issue(ctx context.Context, tx *gorm.DB, userID string) (string, error) {
	if tx == nil {
		tx = s.db
	}

	plain, err := generate()
	if err != nil {
		return "", err
	}

	tx = tx.WithContext(ctx)

	if err = tx.Where("user_id = ?", userID).Delete(&models.PasswordSetupToken{}).Error; err != nil {
		return "", fmt.Errorf("failed to revoke previous token: %w", err)
	}

	row := models.PasswordSetupToken{
		ID:        models.NewID(),
		UserID:    userID,
		TokenHash: hash(plain),
		ExpiresAt: s.now().Add(s.ttl),
	}

	if err = tx.Create(&row).Error; err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	return plain, nil
}

// Consume validates and deletes a token, returning its user id.
func (s *Store) Consume(ctx context.Context, plain string) (string, error) {
	var userID string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		userID, err = s.ConsumeTx(ctx, tx, plain)

		return err
	})
	// expired tokens are deleted in ConsumeTx, keep that even though the call fails
	if errors.Is(err, ErrTokenExpired) {
		if derr := s.db.WithContext(ctx).Where("token_hash = ?", hash(plain)).
			Delete(&models.PasswordSetupToken{}).Error; derr != nil {
			log.Warn().Err(derr).Msg("failed to delete expired password setup token")
		}
	}

	return userID, err
}

// ConsumeTx is Consume inside a caller owned transaction.
func (s *Store) ConsumeTx(ctx context.Context, tx *gorm.DB, plain string) (string, error) {
	if plain == "" {
		return "", ErrTokenInvalid
	}

	tx = tx.WithContext(ctx)

	var row models.PasswordSetupToken

	err := tx.Where("token_hash = ?", hash(plain)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrTokenInvalid
	}

	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}

	if err = tx.Delete(&row).Error; err != nil {
		return "", fmt.Errorf("failed to delete token: %w", err)
	}

	if !s.now().Before(row.ExpiresAt) {
		return "", ErrTokenExpired
	}

	return row.UserID, nil
}

// PurgeExpired removes every expired token and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.PasswordSetupToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge tokens: %w", res.Error)
	}

	return res.RowsAffected, nil
}

func generate() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return hex.EncodeToString(b), nil
}

func hash(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
