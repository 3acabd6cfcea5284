package guard

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tenantadmin/tenantadmin/internal/audit"
	"github.com/tenantadmin/tenantadmin/internal/db"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

// unitOfWork is the single transaction a guard operation runs in. Join table replacements
// only exist as methods on it, so they cannot run outside a transaction.
type unitOfWork struct {
	tx       *gorm.DB
	rejected []models.AuditEvent
}

// run executes fn in a transaction. Audit events collected through reject are written after
// the transaction finished, so they survive its rollback.
func run(ctx context.Context, database *gorm.DB, rec *audit.Recorder, fn func(u *unitOfWork) error) error {
	var rejected []models.AuditEvent

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u := &unitOfWork{tx: tx}
		err := fn(u)
		rejected = u.rejected

		return err
	})

	for _, e := range rejected {
		rec.Record(ctx, e)
	}

	return err
}

func (u *unitOfWork) reject(err error, e models.AuditEvent) error {
	if e.Reason == "" {
		e.Reason = err.Error()
	}

	u.rejected = append(u.rejected, e)

	return err
}

func (u *unitOfWork) replaceRolePermissions(roleID string, permissionIDs []string) error {
	if err := u.tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}

	if len(permissionIDs) == 0 {
		return nil
	}

	links := make([]models.RolePermission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		links = append(links, models.RolePermission{RoleID: roleID, PermissionID: id})
	}

	if err := u.tx.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to store role permissions: %w", err)
	}

	return nil
}

func (u *unitOfWork) grant(roleIDs []string, permissionID string) error {
	if len(roleIDs) == 0 {
		return nil
	}

	links := make([]models.RolePermission, 0, len(roleIDs))
	for _, id := range roleIDs {
		links = append(links, models.RolePermission{RoleID: id, PermissionID: permissionID})
	}

	err := u.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
	if err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}

	return nil
}

// replaceUserRole deletes the user's assignment in the context and inserts the new one.
// The unique indexes turn a concurrent second superadmin into the matching AlreadyAssigned error.
func (u *unitOfWork) replaceUserRole(userID string, role *models.Role, tenantID *string) error {
	err := u.tx.Where("user_id = ? AND context_key = ?", userID, models.ContextKeyOf(tenantID)).
		Delete(&models.UserRole{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear user role: %w", err)
	}

	ur := models.NewUserRole(userID, role, tenantID)
	if err = u.tx.Create(&ur).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return alreadyAssigned(role, err)
		}

		return fmt.Errorf("failed to assign role: %w", err)
	}

	return nil
}

func (u *unitOfWork) ensureMembership(userID, tenantID string, owner bool) error {
	err := u.tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserTenant{UserID: userID, TenantID: tenantID, IsOwner: owner}).Error
	if err != nil {
		return fmt.Errorf("failed to link tenant membership: %w", err)
	}

	return nil
}

func (u *unitOfWork) isMember(userID, tenantID string) (bool, error) {
	var count int64

	err := u.tx.Model(&models.UserTenant{}).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return count > 0, nil
}

// assignment returns the user's role in the context, nil when there is none.
func (u *unitOfWork) assignment(userID string, tenantID *string) (*models.UserRole, error) {
	var rows []models.UserRole

	err := u.tx.Preload("Role").
		Where("user_id = ? AND context_key = ?", userID, models.ContextKeyOf(tenantID)).
		Limit(1).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load user role: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil //nolint:nilnil
	}

	return &rows[0], nil
}

// holdsProtectedRole reports whether the user holds a superadmin role. With singleton keys given,
// only those assignments count.
func (u *unitOfWork) holdsProtectedRole(userID string, singletonKeys ...string) (bool, error) {
	q := u.tx.Model(&models.UserRole{}).Where("user_id = ?", userID)
	if len(singletonKeys) > 0 {
		q = q.Where("singleton_key IN ?", singletonKeys)
	} else {
		q = q.Where("singleton_key IS NOT NULL")
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check protected roles: %w", err)
	}

	return count > 0, nil
}

func alreadyAssigned(role *models.Role, cause error) error {
	switch role.Key {
	case models.RoleCentralSuperadmin:
		return ErrCentralSuperadminAlreadyAssigned
	case models.RoleTenantSuperadmin:
		return ErrTenantSuperadminAlreadyAssigned
	default:
		return fmt.Errorf("concurrent role assignment: %w", cause)
	}
}
