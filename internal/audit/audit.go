// Package audit keeps a trail of rejected security relevant operations.
package audit

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

// Event types.
const (
	TypePrivilegeEscalation = "privilege_escalation"
	TypeTenantMismatch      = "tenant_mismatch"
	TypeScopeMismatch       = "scope_mismatch"
	TypeProtectedRole       = "protected_role"
	TypeForbidden           = "forbidden"
)

// Recorder writes audit events to the audit_events table and the log.
//
// Record must not be called while a transaction on the same database is open, events are
// written on their own connection so they survive the rollback of the rejected operation.
type Recorder struct {
	db *gorm.DB
}

// New creates a Recorder. A nil db only logs.
func New(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record stores e. Storage failures are logged, never returned.
func (r *Recorder) Record(ctx context.Context, e models.AuditEvent) {
	if r == nil {
		return
	}

	ev := log.Warn().
		Str("audit", e.Type).
		Str("actor_id", e.ActorID).
		Str("target", e.Target).
		Str("reason", e.Reason)
	if e.TenantID != nil {
		ev = ev.Str("tenant_id", *e.TenantID)
	}

	ev.Msg("security event")

	if r.db == nil {
		return
	}

	if err := r.db.WithContext(ctx).Create(&e).Error; err != nil {
		log.Error().Err(err).Str("audit", e.Type).Msg("failed to store audit event")
	}
}

// List returns the most recent events, newest first.
func (r *Recorder) List(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	if r == nil || r.db == nil {
		return events, nil
	}

	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&events).Error

	return events, err //nolint:wrapcheck
}
