package models

import "time"

// PasswordSetupToken is a single use credential that lets a user choose a password.
// Only the sha256 hash of the token is stored.
type PasswordSetupToken struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"uniqueIndex;size:36;not null"`
	TokenHash string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

// TableName specifies the database table name for the PasswordSetupToken model.
func (PasswordSetupToken) TableName() string {
	return "password_setup_tokens"
}
