package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/db"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

// LocalProvider is the identity and credential provider backed by the users table.
type LocalProvider struct {
	db *gorm.DB
}

const whereID = "id = ?"

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db: db,
	}
}

// Provision creates the identity inside tx. An empty password leaves the account without
// credentials until a setup link is used.
func (p *LocalProvider) Provision(ctx context.Context, tx *gorm.DB, user *models.User, password string) error {
	user.Email = NormalizeEmail(user.Email)

	if password != "" {
		hash, err := models.HashPassword(password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user.Password = hash
	}

	if err := tx.WithContext(ctx).Create(user).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return ErrEmailInUse
		}

		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// SetPassword replaces the password hash of a user. Passing a nil tx uses the provider's db.
func (p *LocalProvider) SetPassword(ctx context.Context, tx *gorm.DB, userID, password string) error {
	if tx == nil {
		tx = p.db
	}

	hash, err := models.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	res := tx.WithContext(ctx).Model(&models.User{}).Where(whereID, userID).Update("password", hash)
	if res.Error != nil {
		return fmt.Errorf("failed to set password: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Authenticate checks email and password. Disabled accounts are refused even with valid credentials.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User

	err := p.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (p *LocalProvider) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User

	err := p.db.WithContext(ctx).Where(whereID, userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
