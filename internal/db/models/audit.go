package models

import (
	"time"

	"gorm.io/gorm"
)

// AuditEvent records a rejected security relevant operation.
type AuditEvent struct {
	ID        string  `gorm:"primaryKey;size:36"`
	Type      string  `gorm:"size:64;not null;index"`
	ActorID   string  `gorm:"size:36;index"`
	TenantID  *string `gorm:"size:36;index"`
	Target    string  `gorm:"size:255"`
	Reason    string  `gorm:"size:255"`
	CreatedAt time.Time
}

// TableName specifies the database table name for the AuditEvent model.
func (AuditEvent) TableName() string {
	return "audit_events"
}

// BeforeCreate assigns a new id.
func (e *AuditEvent) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = NewID()
	}

	return nil
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&Tenant{},
		&TenantDomain{},
		&User{},
		&UserTenant{},
		&Permission{},
		&Role{},
		&RolePermission{},
		&UserRole{},
		&PasswordSetupToken{},
		&AuditEvent{},
	}
}
