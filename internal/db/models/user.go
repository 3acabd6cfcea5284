package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// User represents an identity. Users are global, tenant membership is expressed by UserTenant
// and what they may do by UserRole.
type User struct {
	// ID is the unique identifier for the user.
	ID string `gorm:"primaryKey;size:36"`
	// Name is the display name.
	Name string `gorm:"size:100;not null"`
	// Email is globally unique and stored lower-cased.
	Email string `gorm:"uniqueIndex;size:255;not null"`
	// Active indicates whether the account may log in and holds any permission.
	Active bool `gorm:"not null"`
	// EmailVerified is set once the user completed a password setup link.
	EmailVerified bool
	// AvatarURL is an optional picture reference.
	AvatarURL string `gorm:"size:512"`
	// Password is the Argon2id hash, empty until a password has been set.
	Password string `gorm:"size:255" json:"-"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a new id.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}

	return nil
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams) //nolint:wrapcheck
}

// VerifyPassword verifies a plaintext password against the user's stored hash.
// Users without a password never verify.
func (u *User) VerifyPassword(password string) bool {
	if u.Password == "" {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Err(err).Str("user_id", u.ID).Msg("failed to verify password")
		return false
	}

	return match
}

// UserTenant records that a user is a member of a tenant.
type UserTenant struct {
	UserID    string `gorm:"primaryKey;size:36"`
	TenantID  string `gorm:"primaryKey;size:36;index"`
	IsOwner   bool
	CreatedAt time.Time
}

// TableName specifies the database table name for the UserTenant model.
func (UserTenant) TableName() string {
	return "user_tenants"
}
