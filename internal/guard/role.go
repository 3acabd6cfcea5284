package guard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/audit"
	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/db"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

var (
	roleKeyPattern       = regexp.MustCompile(`^[a-z0-9_]+$`)
	permissionKeyPattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)
)

// RoleInput is a role create (empty ID) or edit.
type RoleInput struct {
	ID       string
	Key      string
	Name     string
	TenantID *string
	// PermissionIDs replaces the permission set. Nil leaves it untouched, an empty slice clears it.
	PermissionIDs []string
	// Version, when set, must equal the stored version of the edited role.
	Version int
	// ActorID is recorded in the audit trail.
	ActorID string
}

// PermissionInput is a permission create (empty ID) or edit.
type PermissionInput struct {
	ID       string
	Key      string
	Name     string
	TenantID *string
	ActorID  string
}

// RoleGuard mutates roles and permissions while keeping tenants unable to grant themselves
// central or foreign capabilities.
type RoleGuard struct {
	db     *gorm.DB
	svc    *auth.Service
	policy auth.KeyPolicy
	audit  *audit.Recorder
}

// NewRoleGuard creates a RoleGuard. svc is used for cache invalidation only.
func NewRoleGuard(db *gorm.DB, svc *auth.Service, policy auth.KeyPolicy, rec *audit.Recorder) *RoleGuard {
	return &RoleGuard{db: db, svc: svc, policy: policy, audit: rec}
}

// UpsertRole creates or edits a role and optionally replaces its permission set.
func (g *RoleGuard) UpsertRole(ctx context.Context, in RoleInput) (*models.Role, error) {
	key := strings.TrimSpace(in.Key)
	name := strings.TrimSpace(in.Name)

	if !roleKeyPattern.MatchString(key) {
		return nil, ErrInvalidRoleKey
	}

	if name == "" {
		return nil, ErrRoleNameRequired
	}

	if in.ID == "" && models.IsProtectedRoleKey(key) {
		return nil, ErrCannotCreateProtectedRole
	}

	role := &models.Role{}

	err := run(ctx, g.db, g.audit, func(u *unitOfWork) error {
		if in.ID != "" {
			if err := u.tx.Where("id = ?", in.ID).First(role).Error; err != nil {
				return notFound(err, ErrRoleNotFound)
			}

			if !models.SameTenant(role.TenantID, in.TenantID) {
				return u.reject(ErrRoleTenantMismatch, roleEvent(audit.TypeTenantMismatch, in, role.ID))
			}

			if role.IsProtected() && key != role.Key {
				return ErrCannotChangeProtectedKey
			}

			if in.Version != 0 && in.Version != role.Version {
				return ErrRoleVersionConflict
			}
		}

		var taken int64
		if err := u.tx.Model(&models.Role{}).
			Where("role_key = ? AND scope_key = ? AND id <> ?", key, models.ContextKeyOf(in.TenantID), in.ID).
			Count(&taken).Error; err != nil {
			return fmt.Errorf("failed to check role key: %w", err)
		}

		if taken > 0 {
			return ErrRoleKeyInUse
		}

		if in.PermissionIDs != nil {
			if in.ID != "" && role.IsProtected() {
				return u.reject(ErrProtectedRolePermissions, roleEvent(audit.TypeProtectedRole, in, role.ID))
			}

			if err := g.checkPermissionScope(u, in); err != nil {
				return err
			}
		}

		if err := g.persistRole(u, in, key, name, role); err != nil {
			return err
		}

		if in.PermissionIDs == nil {
			return nil
		}

		return u.replaceRolePermissions(role.ID, dedupe(in.PermissionIDs))
	})
	if err != nil {
		return nil, err
	}

	if in.PermissionIDs != nil {
		g.svc.InvalidateAll()
	}

	log.Info().Str("role", role.Key).Str("role_id", role.ID).Int("version", role.Version).Msg("role saved")

	return role, nil
}

// checkPermissionScope enforces that tenant roles only reference their own or global,
// non central-only permissions, and central roles only global ones.
func (g *RoleGuard) checkPermissionScope(u *unitOfWork, in RoleInput) error {
	ids := dedupe(in.PermissionIDs)
	if len(ids) == 0 {
		return nil
	}

	var perms []models.Permission
	if err := u.tx.Where("id IN ?", ids).Find(&perms).Error; err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}

	if len(perms) != len(ids) {
		return ErrPermissionNotFound
	}

	for _, p := range perms {
		if in.TenantID == nil {
			if p.TenantID != nil {
				return u.reject(ErrRoleScopeMismatch, roleEvent(audit.TypeScopeMismatch, in, "permission:"+p.Key))
			}

			continue
		}

		if g.policy.IsCentralOnly(p.Key) || (p.TenantID != nil && *p.TenantID != *in.TenantID) {
			return u.reject(ErrAttemptedPrivilegeEscalation,
				roleEvent(audit.TypePrivilegeEscalation, in, "permission:"+p.Key))
		}
	}

	return nil
}

func (g *RoleGuard) persistRole(u *unitOfWork, in RoleInput, key, name string, role *models.Role) error {
	if in.ID == "" {
		*role = models.Role{Key: key, Name: name, TenantID: in.TenantID}
		if err := u.tx.Create(role).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return ErrRoleKeyInUse
			}

			return fmt.Errorf("failed to create role: %w", err)
		}

		return nil
	}

	res := u.tx.Model(&models.Role{}).
		Where("id = ? AND version = ?", role.ID, role.Version).
		Updates(map[string]any{"role_key": key, "name": name, "version": role.Version + 1})
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error) {
			return ErrRoleKeyInUse
		}

		return fmt.Errorf("failed to update role: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrRoleVersionConflict
	}

	role.Key = key
	role.Name = name
	role.Version++

	return nil
}

// DeleteRole removes an unassigned, unprotected role of the context.
func (g *RoleGuard) DeleteRole(ctx context.Context, id string, tenantID *string) error {
	var role models.Role

	err := run(ctx, g.db, g.audit, func(u *unitOfWork) error {
		if err := u.tx.Where("id = ?", id).First(&role).Error; err != nil {
			return notFound(err, ErrRoleNotFound)
		}

		if role.IsProtected() {
			return ErrRoleProtected
		}

		if !models.SameTenant(role.TenantID, tenantID) {
			return u.reject(ErrRoleTenantMismatch, models.AuditEvent{
				Type: audit.TypeTenantMismatch, TenantID: tenantID, Target: "role:" + role.ID,
			})
		}

		var assigned int64
		if err := u.tx.Model(&models.UserRole{}).Where("role_id = ?", id).Count(&assigned).Error; err != nil {
			return fmt.Errorf("failed to count role assignments: %w", err)
		}

		if assigned > 0 {
			return ErrRoleInUse
		}

		if err := u.replaceRolePermissions(id, nil); err != nil {
			return err
		}

		if err := u.tx.Delete(&models.Role{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("role", role.Key).Str("role_id", role.ID).Msg("role deleted")

	return nil
}

// ListRoles returns the roles of the context ordered by key.
func (g *RoleGuard) ListRoles(ctx context.Context, tenantID *string) ([]models.Role, error) {
	var roles []models.Role

	err := g.db.WithContext(ctx).
		Where("scope_key = ?", models.ContextKeyOf(tenantID)).
		Order("role_key").Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return roles, nil
}

// RolePermissionIDs returns the ids of the permissions granted to a role.
func (g *RoleGuard) RolePermissionIDs(ctx context.Context, roleID string) ([]string, error) {
	var ids []string

	err := g.db.WithContext(ctx).Model(&models.RolePermission{}).
		Where("role_id = ?", roleID).Order("permission_id").
		Pluck("permission_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}

	return ids, nil
}

func roleEvent(typ string, in RoleInput, target string) models.AuditEvent {
	if target == "" {
		target = in.Key
	}

	return models.AuditEvent{
		Type:     typ,
		ActorID:  in.ActorID,
		TenantID: in.TenantID,
		Target:   "role:" + in.Key + " " + target,
	}
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}

	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
