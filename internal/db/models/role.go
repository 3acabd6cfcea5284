package models

import (
	"time"

	"gorm.io/gorm"
)

// Scope tells whether a role lives in the central context or inside one tenant.
type Scope string

const (
	// ScopeCentral roles have no tenant and apply in every context.
	ScopeCentral Scope = "CENTRAL"
	// ScopeTenant roles belong to exactly one tenant.
	ScopeTenant Scope = "TENANT"
)

// Protected role keys. Each has at most one holder per context and can neither be created
// through the guards nor renamed.
const (
	RoleCentralSuperadmin = "central_superadmin"
	RoleTenantSuperadmin  = "tenant_superadmin"
)

// IsProtectedRoleKey reports whether key names a protected role.
func IsProtectedRoleKey(key string) bool {
	return key == RoleCentralSuperadmin || key == RoleTenantSuperadmin
}

// Role is a named bundle of permissions.
type Role struct {
	// ID is the unique identifier for the role.
	ID string `gorm:"primaryKey;size:36"`
	// Key is the machine name, unique within ScopeKey. The column avoids the reserved word KEY.
	Key string `gorm:"column:role_key;size:100;not null;uniqueIndex:idx_roles_key_scope"`
	// Name is the display name.
	Name string `gorm:"size:255;not null"`
	// Scope is CENTRAL or TENANT.
	Scope Scope `gorm:"type:varchar(16);not null"`
	// TenantID is nil for central roles.
	TenantID *string `gorm:"size:36;index"`
	// ScopeKey is derived from TenantID, see CentralKey.
	ScopeKey string `gorm:"size:36;not null;uniqueIndex:idx_roles_key_scope" json:"-"`
	// Version is incremented on every edit.
	Version int `gorm:"not null;default:1"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}

// IsProtected reports whether the role is one of the superadmin roles.
func (r *Role) IsProtected() bool {
	return IsProtectedRoleKey(r.Key)
}

// BeforeCreate assigns a new id.
func (r *Role) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = NewID()
	}

	if r.Version == 0 {
		r.Version = 1
	}

	return nil
}

// BeforeSave keeps Scope and ScopeKey consistent with TenantID.
func (r *Role) BeforeSave(_ *gorm.DB) error {
	r.ScopeKey = ContextKeyOf(r.TenantID)
	if r.TenantID == nil {
		r.Scope = ScopeCentral
	} else {
		r.Scope = ScopeTenant
	}

	return nil
}
