package models

import (
	"time"

	"gorm.io/gorm"
)

// Tenant represents a customer workspace. The platform operator workspace is a regular tenant
// identified by the configured central slug.
type Tenant struct {
	// ID is the unique identifier for the tenant.
	ID string `gorm:"primaryKey;size:36"`
	// Slug is the unique url safe identifier of the tenant.
	Slug string `gorm:"uniqueIndex;size:100;not null"`
	// Name is the display name of the tenant.
	Name string `gorm:"size:255;not null"`
	// Domain is the primary domain record (loaded via Preload).
	Domain *TenantDomain `gorm:"foreignKey:TenantID"`
	// CreatedAt is the timestamp when the tenant was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the tenant was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Tenant model.
func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate assigns a new id.
func (t *Tenant) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}

	return nil
}

// TenantDomain maps a network host name to exactly one tenant.
type TenantDomain struct {
	ID string `gorm:"primaryKey;size:36"`
	// TenantID is unique, a tenant has at most one primary domain.
	TenantID string `gorm:"uniqueIndex;size:36;not null"`
	// Domain is the lower-cased host name without port.
	Domain    string `gorm:"uniqueIndex;size:255;not null"`
	CreatedAt time.Time
}

// TableName specifies the database table name for the TenantDomain model.
func (TenantDomain) TableName() string {
	return "tenant_domains"
}

// BeforeCreate assigns a new id.
func (d *TenantDomain) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = NewID()
	}

	return nil
}
