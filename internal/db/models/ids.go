package models

import (
	"github.com/google/uuid"
)

// CentralKey is the non-null stand in for a nil tenant id in unique indexes.
const CentralKey = "-"

// NewID returns a new random entity id.
func NewID() string {
	return uuid.NewString()
}

// ContextKeyOf maps a tenant context to its index key.
func ContextKeyOf(tenantID *string) string {
	if tenantID == nil {
		return CentralKey
	}

	return *tenantID
}

// SameTenant reports whether two tenant contexts are equal, nil meaning central.
func SameTenant(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}
