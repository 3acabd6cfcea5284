package guard

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/audit"
	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
	"github.com/tenantadmin/tenantadmin/internal/notify"
	"github.com/tenantadmin/tenantadmin/internal/token"
)

// UserInput is a user create (empty ID) or profile edit.
type UserInput struct {
	ID        string
	Name      string `validate:"required,max=100"`
	Email     string `validate:"required,email,max=255"`
	RoleID    string `validate:"required"`
	AvatarURL string `validate:"omitempty,url,max=512"`
	// Password is only used on create. Password changes go through the setup link flow.
	Password string `validate:"omitempty,min=8,max=128"`
	// SendSetupLink issues a password setup token instead of requiring a password.
	SendSetupLink bool
}

// UserResult is the outcome of CreateOrUpdateUser.
type UserResult struct {
	User    *models.User
	Role    *models.Role
	Created bool
	// SetupToken is the plain setup token when one was issued.
	SetupToken string
}

// UserGuard creates, edits, deletes and (de)activates users while protecting the superadmins.
type UserGuard struct {
	db       *gorm.DB
	svc      *auth.Service
	provider *auth.LocalProvider
	tokens   *token.Store
	notifier notify.Notifier
	audit    *audit.Recorder
	validate *validator.Validate
}

// NewUserGuard creates a UserGuard.
func NewUserGuard(
	db *gorm.DB,
	svc *auth.Service,
	provider *auth.LocalProvider,
	tokens *token.Store,
	notifier notify.Notifier,
	rec *audit.Recorder,
) *UserGuard {
	if notifier == nil {
		notifier = notify.NoOp{}
	}

	return &UserGuard{
		db:       db,
		svc:      svc,
		provider: provider,
		tokens:   tokens,
		notifier: notifier,
		audit:    rec,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// authorize checks that actor may perform the operation guarded by key in the context and
// reports whether the actor is the central superadmin.
// Central superadmins may act everywhere, anybody else only inside a tenant they belong to.
func (g *UserGuard) authorize(ctx context.Context, actor string, tenantID *string, key string) (bool, error) {
	if actor == "" {
		return false, auth.ErrUnauthorized
	}

	super, err := g.svc.HoldsRole(ctx, actor, models.RoleCentralSuperadmin, nil)
	if err != nil {
		return false, err
	}

	if super {
		return true, nil
	}

	if tenantID == nil {
		g.audit.Record(ctx, models.AuditEvent{Type: audit.TypeForbidden, ActorID: actor, Target: key})
		return false, auth.ErrForbiddenCentralAccess
	}

	var member int64
	if err = g.db.WithContext(ctx).Model(&models.UserTenant{}).
		Where("user_id = ? AND tenant_id = ?", actor, *tenantID).
		Count(&member).Error; err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	if member == 0 {
		return false, auth.ErrForbiddenInsufficientPermissions
	}

	perms, err := g.svc.GetPermissions(ctx, actor, tenantID)
	if err != nil {
		return false, err
	}

	if !perms.Allows(key) {
		return false, fmt.Errorf("%w: requires %s", auth.ErrForbiddenInsufficientPermissions, key)
	}

	return false, nil
}

// CreateOrUpdateUser creates a user or edits a profile and sets the user's single role in the context.
func (g *UserGuard) CreateOrUpdateUser(
	ctx context.Context,
	actor string,
	tenantID *string,
	in UserInput,
) (*UserResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = auth.NormalizeEmail(in.Email)
	creating := in.ID == ""

	if err := g.validate.StructCtx(ctx, in); err != nil {
		return nil, ValidationErrorOf(err)
	}

	if creating && in.Password == "" && !in.SendSetupLink {
		return nil, newValidationError("Password", "required")
	}

	key := auth.PermUsersUpdate
	if creating {
		key = auth.PermUsersCreate
	}

	super, err := g.authorize(ctx, actor, tenantID, key)
	if err != nil {
		return nil, err
	}

	res := &UserResult{User: &models.User{}, Role: &models.Role{}, Created: creating}
	// storedEmail is the address on file before the edit, setup links only go there.
	var storedEmail string

	err = run(ctx, g.db, g.audit, func(u *unitOfWork) error {
		role := res.Role
		if err := u.tx.Where("id = ?", in.RoleID).First(role).Error; err != nil {
			return notFound(err, ErrRoleNotFound)
		}

		if err := checkRoleContext(u, actor, role, tenantID); err != nil {
			return err
		}

		user := res.User
		if !creating {
			if err := g.loadTarget(u, in.ID, tenantID, user); err != nil {
				return err
			}

			storedEmail = user.Email

			if in.SendSetupLink && in.Email != user.Email {
				return ErrSetupLinkWithEmailChange
			}

			if err := checkProtectedEdit(u, actor, super, user.ID, tenantID); err != nil {
				return err
			}
		}

		if role.IsProtected() {
			var holders int64
			if err := u.tx.Model(&models.UserRole{}).
				Where("singleton_key = ? AND user_id <> ?", models.SingletonKeyOf(role.Key, tenantID), in.ID).
				Count(&holders).Error; err != nil {
				return fmt.Errorf("failed to check role holders: %w", err)
			}

			if holders > 0 {
				return alreadyAssigned(role, nil)
			}
		}

		if !creating {
			current, err := u.assignment(user.ID, tenantID)
			if err != nil {
				return err
			}

			changed := current == nil || current.RoleID != role.ID

			if changed && current != nil && current.Role != nil && current.Role.Key == models.RoleCentralSuperadmin {
				return ErrCannotDemoteLastSuperadmin
			}

			if changed && user.ID == actor {
				return u.reject(ErrCannotChangeOwnRole, models.AuditEvent{
					Type:     audit.TypePrivilegeEscalation,
					ActorID:  actor,
					TenantID: tenantID,
					Target:   "role:" + role.Key,
				})
			}
		}

		var taken int64
		if err := u.tx.Model(&models.User{}).Where("email = ? AND id <> ?", in.Email, in.ID).
			Count(&taken).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}

		if taken > 0 {
			return ErrEmailInUse
		}

		if creating {
			*user = models.User{Name: in.Name, Email: in.Email, AvatarURL: in.AvatarURL, Active: true}

			password := in.Password
			if in.SendSetupLink {
				password = ""
			}

			if err := g.provider.Provision(ctx, u.tx, user, password); err != nil {
				return err
			}
		} else {
			err := u.tx.Model(user).Updates(map[string]any{
				"name":       in.Name,
				"email":      in.Email,
				"avatar_url": in.AvatarURL,
			}).Error
			if err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}

			user.Name, user.Email, user.AvatarURL = in.Name, in.Email, in.AvatarURL
		}

		if in.SendSetupLink {
			plain, err := g.tokens.Issue(ctx, u.tx, user.ID)
			if err != nil {
				return err
			}

			res.SetupToken = plain
		}

		if tenantID != nil {
			owner := creating && role.Key == models.RoleTenantSuperadmin
			if err := u.ensureMembership(user.ID, *tenantID, owner); err != nil {
				return err
			}
		}

		return u.replaceUserRole(user.ID, role, tenantID)
	})
	if err != nil {
		return nil, err
	}

	g.svc.Invalidate(res.User.ID)

	kind := notify.KindUpdated
	if creating {
		kind = notify.KindCreated
	}

	to := res.User.Email
	if res.SetupToken != "" && storedEmail != "" {
		to = storedEmail
	}

	g.notify(ctx, res.User, to, tenantID, kind, res.SetupToken)

	log.Info().Str("user_id", res.User.ID).Str("role", res.Role.Key).Bool("created", creating).
		Str("actor_id", actor).Msg("user saved")

	return res, nil
}

// checkRoleContext makes sure the role can be held in the context: tenant roles of that tenant
// in a tenant context, central roles in the central context.
func checkRoleContext(u *unitOfWork, actor string, role *models.Role, tenantID *string) error {
	event := models.AuditEvent{ActorID: actor, TenantID: tenantID, Target: "role:" + role.Key}

	if tenantID == nil {
		if role.Scope != models.ScopeCentral {
			event.Type = audit.TypeScopeMismatch
			return u.reject(ErrRoleScopeMismatch, event)
		}

		return nil
	}

	if role.Scope != models.ScopeTenant {
		event.Type = audit.TypeScopeMismatch
		return u.reject(ErrRoleScopeMismatch, event)
	}

	if !models.SameTenant(role.TenantID, tenantID) {
		event.Type = audit.TypeTenantMismatch
		return u.reject(ErrRoleTenantMismatch, event)
	}

	return nil
}

// checkProtectedEdit lets only the central superadmin and the holder edit the account of a superadmin.
func checkProtectedEdit(u *unitOfWork, actor string, super bool, targetID string, tenantID *string) error {
	if super || actor == targetID {
		return nil
	}

	protected, err := u.holdsProtectedRole(targetID)
	if err != nil {
		return err
	}

	if protected {
		return u.reject(ErrProtectedUserEdit, models.AuditEvent{
			Type:     audit.TypeProtectedRole,
			ActorID:  actor,
			TenantID: tenantID,
			Target:   "user:" + targetID,
		})
	}

	return nil
}

// loadTarget loads a user that is visible in the context. Tenants only see their members.
func (g *UserGuard) loadTarget(u *unitOfWork, userID string, tenantID *string, user *models.User) error {
	if err := u.tx.Where("id = ?", userID).First(user).Error; err != nil {
		return notFound(err, ErrUserNotFound)
	}

	if tenantID == nil {
		return nil
	}

	member, err := u.isMember(userID, *tenantID)
	if err != nil {
		return err
	}

	if !member {
		return ErrUserNotFound
	}

	return nil
}

// DeleteUser removes a user from the context. Central deletes remove the account unless it is the
// central superadmin, tenant deletes remove the membership and the account once it belongs nowhere.
func (g *UserGuard) DeleteUser(ctx context.Context, actor, userID string, tenantID *string) error {
	super, err := g.authorize(ctx, actor, tenantID, auth.PermUsersDelete)
	if err != nil {
		return err
	}

	if actor == userID {
		return ErrCannotDeleteSelf
	}

	var removed bool

	err = run(ctx, g.db, g.audit, func(u *unitOfWork) error {
		var user models.User
		if err := g.loadTarget(u, userID, tenantID, &user); err != nil {
			return err
		}

		if tenantID == nil {
			sole, err := u.holdsProtectedRole(userID, models.SingletonKeyOf(models.RoleCentralSuperadmin, nil))
			if err != nil {
				return err
			}

			if sole {
				return ErrCannotDeleteLastUser
			}

			removed = true

			return deleteAccount(u.tx, userID)
		}

		var members int64
		if err := u.tx.Model(&models.UserTenant{}).Where("tenant_id = ?", *tenantID).
			Count(&members).Error; err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}

		if members <= 1 {
			return ErrCannotDeleteLastUser
		}

		// tenant members can not remove their owner, the central superadmin can
		if !super {
			owner, err := u.holdsProtectedRole(userID, models.SingletonKeyOf(models.RoleTenantSuperadmin, tenantID))
			if err != nil {
				return err
			}

			if owner {
				return ErrCannotDeleteLastUser
			}
		}

		if err := u.tx.Where("user_id = ? AND tenant_id = ?", userID, *tenantID).
			Delete(&models.UserTenant{}).Error; err != nil {
			return fmt.Errorf("failed to remove membership: %w", err)
		}

		if err := u.tx.Where("user_id = ? AND context_key = ?", userID, *tenantID).
			Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("failed to remove user role: %w", err)
		}

		var memberships, centralRoles int64
		if err := u.tx.Model(&models.UserTenant{}).Where("user_id = ?", userID).Count(&memberships).Error; err != nil {
			return fmt.Errorf("failed to count memberships: %w", err)
		}

		if err := u.tx.Model(&models.UserRole{}).Where("user_id = ? AND context_key = ?", userID, models.CentralKey).
			Count(&centralRoles).Error; err != nil {
			return fmt.Errorf("failed to count central roles: %w", err)
		}

		if memberships == 0 && centralRoles == 0 {
			removed = true
			return deleteAccount(u.tx, userID)
		}

		return nil
	})
	if err != nil {
		return err
	}

	g.svc.Invalidate(userID)
	log.Info().Str("user_id", userID).Str("actor_id", actor).Bool("account_removed", removed).Msg("user deleted")

	return nil
}

func deleteAccount(tx *gorm.DB, userID string) error {
	for _, m := range []any{&models.UserRole{}, &models.UserTenant{}, &models.PasswordSetupToken{}} {
		if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
			return fmt.Errorf("failed to remove user data: %w", err)
		}
	}

	if err := tx.Delete(&models.User{}, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

// ToggleActive activates or deactivates an account. Holders of a superadmin role can not be
// deactivated, they have to be demoted first.
func (g *UserGuard) ToggleActive(ctx context.Context, actor, userID string, active bool, tenantID *string) error {
	if _, err := g.authorize(ctx, actor, tenantID, auth.PermUsersToggleActive); err != nil {
		return err
	}

	if actor == userID && !active {
		return ErrCannotDeactivateSelf
	}

	var user models.User

	err := run(ctx, g.db, g.audit, func(u *unitOfWork) error {
		if err := g.loadTarget(u, userID, tenantID, &user); err != nil {
			return err
		}

		if !active {
			protected, err := u.holdsProtectedRole(userID)
			if err != nil {
				return err
			}

			if protected {
				return ErrCannotDeactivateLastUser
			}
		}

		if err := u.tx.Model(&user).Update("active", active).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		user.Active = active

		return nil
	})
	if err != nil {
		return err
	}

	g.svc.Invalidate(userID)

	kind := notify.KindUpdated
	if !active {
		kind = notify.KindDeactivated
	}

	g.notify(ctx, &user, user.Email, tenantID, kind, "")
	log.Info().Str("user_id", userID).Str("actor_id", actor).Bool("active", active).Msg("user toggled")

	return nil
}

func (g *UserGuard) notify(
	ctx context.Context,
	user *models.User,
	email string,
	tenantID *string,
	kind notify.Kind,
	setupToken string,
) {
	err := g.notifier.Notify(ctx, notify.Message{
		Kind:       kind,
		UserID:     user.ID,
		Email:      email,
		Name:       user.Name,
		TenantID:   tenantID,
		SetupToken: setupToken,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Str("kind", string(kind)).Msg("failed to notify user")
	}
}
