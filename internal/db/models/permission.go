package models

import (
	"time"

	"gorm.io/gorm"
)

// Permission is a single capability identified by a dotted key such as "users.create".
// Global permissions have a nil TenantID.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID string `gorm:"primaryKey;size:36"`
	// Key is unique within ScopeKey.
	Key string `gorm:"column:permission_key;size:150;not null;uniqueIndex:idx_permissions_key_scope"`
	// Name is the human readable label.
	Name string `gorm:"size:255;not null"`
	// TenantID is nil for global permissions.
	TenantID *string `gorm:"size:36;index"`
	// ScopeKey is derived from TenantID, see CentralKey.
	ScopeKey string `gorm:"size:36;not null;uniqueIndex:idx_permissions_key_scope" json:"-"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}

// BeforeCreate assigns a new id.
func (p *Permission) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}

	return nil
}

// BeforeSave derives ScopeKey.
func (p *Permission) BeforeSave(_ *gorm.DB) error {
	p.ScopeKey = ContextKeyOf(p.TenantID)
	return nil
}
