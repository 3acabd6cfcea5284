package guard

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tenantadmin/tenantadmin/internal/audit"
	"github.com/tenantadmin/tenantadmin/internal/db"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

// UpsertPermission creates or edits a permission. New permissions are granted to the
// superadmin roles that can hold them.
func (g *RoleGuard) UpsertPermission(ctx context.Context, in PermissionInput) (*models.Permission, error) {
	key := strings.TrimSpace(in.Key)
	name := strings.TrimSpace(in.Name)

	if !permissionKeyPattern.MatchString(key) {
		return nil, ErrInvalidPermissionKey
	}

	if name == "" {
		return nil, ErrPermissionNameRequired
	}

	perm := &models.Permission{}

	err := run(ctx, g.db, g.audit, func(u *unitOfWork) error {
		if in.TenantID != nil && g.policy.IsCentralOnly(key) {
			return u.reject(ErrAttemptedPrivilegeEscalation, permissionEvent(audit.TypePrivilegeEscalation, in))
		}

		if in.ID != "" {
			if err := u.tx.Where("id = ?", in.ID).First(perm).Error; err != nil {
				return notFound(err, ErrPermissionNotFound)
			}

			if !models.SameTenant(perm.TenantID, in.TenantID) {
				return u.reject(ErrRoleTenantMismatch, permissionEvent(audit.TypeTenantMismatch, in))
			}

			// renaming a granted key into the central only namespace would hand it to tenants
			if key != perm.Key && g.policy.IsCentralOnly(key) {
				held, err := g.heldByTenantRoles(u, perm.ID)
				if err != nil {
					return err
				}

				if held {
					return u.reject(ErrAttemptedPrivilegeEscalation, permissionEvent(audit.TypePrivilegeEscalation, in))
				}
			}
		}

		var taken int64
		if err := u.tx.Model(&models.Permission{}).
			Where("permission_key = ? AND scope_key = ? AND id <> ?", key, models.ContextKeyOf(in.TenantID), in.ID).
			Count(&taken).Error; err != nil {
			return fmt.Errorf("failed to check permission key: %w", err)
		}

		if taken > 0 {
			return ErrPermissionKeyInUse
		}

		if in.ID != "" {
			err := u.tx.Model(perm).Updates(map[string]any{"permission_key": key, "name": name}).Error
			if err != nil {
				if db.IsUniqueViolation(err) {
					return ErrPermissionKeyInUse
				}

				return fmt.Errorf("failed to update permission: %w", err)
			}

			perm.Key = key
			perm.Name = name

			return nil
		}

		*perm = models.Permission{Key: key, Name: name, TenantID: in.TenantID}
		if err := u.tx.Create(perm).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return ErrPermissionKeyInUse
			}

			return fmt.Errorf("failed to create permission: %w", err)
		}

		roleIDs, err := g.superadminRoles(u, perm)
		if err != nil {
			return err
		}

		return u.grant(roleIDs, perm.ID)
	})
	if err != nil {
		return nil, err
	}

	g.svc.InvalidateAll()
	log.Info().Str("permission", perm.Key).Str("permission_id", perm.ID).Msg("permission saved")

	return perm, nil
}

// superadminRoles returns the superadmin roles a new permission is granted to.
func (g *RoleGuard) superadminRoles(u *unitOfWork, perm *models.Permission) ([]string, error) {
	q := u.tx.Model(&models.Role{})

	switch {
	case perm.TenantID != nil:
		q = q.Where("role_key = ? AND tenant_id = ?", models.RoleTenantSuperadmin, *perm.TenantID)
	case g.policy.IsCentralOnly(perm.Key):
		q = q.Where("role_key = ? AND scope_key = ?", models.RoleCentralSuperadmin, models.CentralKey)
	default:
		q = q.Where("(role_key = ? AND scope_key = ?) OR role_key = ?",
			models.RoleCentralSuperadmin, models.CentralKey, models.RoleTenantSuperadmin)
	}

	var ids []string
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load superadmin roles: %w", err)
	}

	return ids, nil
}

func (g *RoleGuard) heldByTenantRoles(u *unitOfWork, permissionID string) (bool, error) {
	var count int64

	err := u.tx.Model(&models.RolePermission{}).
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Where("role_permissions.permission_id = ? AND roles.tenant_id IS NOT NULL", permissionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check permission grants: %w", err)
	}

	return count > 0, nil
}

// DeletePermission removes a permission that no regular role holds. Grants to the superadmin
// roles exist by construction and are removed along with the permission.
func (g *RoleGuard) DeletePermission(ctx context.Context, id string, tenantID *string) error {
	var perm models.Permission

	err := run(ctx, g.db, g.audit, func(u *unitOfWork) error {
		if err := u.tx.Where("id = ?", id).First(&perm).Error; err != nil {
			return notFound(err, ErrPermissionNotFound)
		}

		if !models.SameTenant(perm.TenantID, tenantID) {
			return u.reject(ErrRoleTenantMismatch, models.AuditEvent{
				Type: audit.TypeTenantMismatch, TenantID: tenantID, Target: "permission:" + perm.Key,
			})
		}

		var attached int64
		if err := u.tx.Model(&models.RolePermission{}).
			Joins("JOIN roles ON roles.id = role_permissions.role_id").
			Where("role_permissions.permission_id = ? AND roles.role_key NOT IN ?", id,
				[]string{models.RoleCentralSuperadmin, models.RoleTenantSuperadmin}).
			Count(&attached).Error; err != nil {
			return fmt.Errorf("failed to count permission grants: %w", err)
		}

		if attached > 0 {
			return ErrPermissionInUse
		}

		if err := u.tx.Where("permission_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return fmt.Errorf("failed to revoke permission: %w", err)
		}

		if err := u.tx.Delete(&models.Permission{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete permission: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	g.svc.InvalidateAll()
	log.Info().Str("permission", perm.Key).Str("permission_id", perm.ID).Msg("permission deleted")

	return nil
}

// GetPermissionByKey looks up a permission in the scope of tenantID.
func (g *RoleGuard) GetPermissionByKey(ctx context.Context, key string, tenantID *string) (*models.Permission, error) {
	var perm models.Permission

	err := g.db.WithContext(ctx).
		Where("permission_key = ? AND scope_key = ?", key, models.ContextKeyOf(tenantID)).
		First(&perm).Error
	if err != nil {
		return nil, notFound(err, ErrPermissionNotFound)
	}

	return &perm, nil
}

// ListPermissions returns the permissions usable in the context: global ones, plus the tenant's own.
// Tenants do not see central only keys.
func (g *RoleGuard) ListPermissions(ctx context.Context, tenantID *string) ([]models.Permission, error) {
	var perms []models.Permission

	q := g.db.WithContext(ctx).Order("permission_key")
	if tenantID == nil {
		q = q.Where("tenant_id IS NULL")
	} else {
		q = q.Where("tenant_id IS NULL OR tenant_id = ?", *tenantID)
	}

	if err := q.Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	if tenantID == nil {
		return perms, nil
	}

	out := perms[:0]

	for _, p := range perms {
		if p.TenantID == nil && g.policy.IsCentralOnly(p.Key) {
			continue
		}

		out = append(out, p)
	}

	return out, nil
}

func permissionEvent(typ string, in PermissionInput) models.AuditEvent {
	return models.AuditEvent{
		Type:     typ,
		ActorID:  in.ActorID,
		TenantID: in.TenantID,
		Target:   "permission:" + in.Key,
	}
}
