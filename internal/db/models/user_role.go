package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole assigns a role to a user within one context.
//
// The (user_id, context_key) index allows one role per user and context. SingletonKey is only
// set for protected roles, the unique index on it therefore allows a single holder per protected
// role and context while NULLs stay unconstrained.
type UserRole struct {
	ID     string `gorm:"primaryKey;size:36"`
	UserID string `gorm:"size:36;not null;uniqueIndex:idx_user_roles_user_context"`
	RoleID string `gorm:"size:36;not null;index"`
	// TenantID is nil in the central context.
	TenantID     *string `gorm:"size:36;index"`
	ContextKey   string  `gorm:"size:36;not null;uniqueIndex:idx_user_roles_user_context"`
	SingletonKey *string `gorm:"size:150;uniqueIndex"`
	Role         *Role   `gorm:"foreignKey:RoleID"`
	CreatedAt    time.Time
}

// TableName specifies the database table name for the UserRole model.
func (UserRole) TableName() string {
	return "user_roles"
}

// NewUserRole builds an assignment with its derived keys filled in.
func NewUserRole(userID string, role *Role, tenantID *string) UserRole {
	ur := UserRole{
		ID:         NewID(),
		UserID:     userID,
		RoleID:     role.ID,
		TenantID:   tenantID,
		ContextKey: ContextKeyOf(tenantID),
	}

	if role.IsProtected() {
		key := SingletonKeyOf(role.Key, tenantID)
		ur.SingletonKey = &key
	}

	return ur
}

// SingletonKeyOf returns the singleton index value of a protected role in a context.
func SingletonKeyOf(roleKey string, tenantID *string) string {
	return roleKey + ":" + ContextKeyOf(tenantID)
}

// BeforeCreate assigns a new id and derives ContextKey.
func (ur *UserRole) BeforeCreate(_ *gorm.DB) error {
	if ur.ID == "" {
		ur.ID = NewID()
	}

	ur.ContextKey = ContextKeyOf(ur.TenantID)

	return nil
}
