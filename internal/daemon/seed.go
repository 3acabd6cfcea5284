package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/config"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
	"github.com/tenantadmin/tenantadmin/internal/tenant"
	"github.com/tenantadmin/tenantadmin/internal/uniuri"
)

const (
	defaultAdminEmail = "admin@localhost"
	defaultAdminName  = "Administrator"
	adminPasswordLen  = 20
)

// SeedResult reports what Seed created.
type SeedResult struct {
	Permissions int
	// AdminEmail and AdminPassword are set when the bootstrap admin was created.
	AdminEmail    string
	AdminPassword string
}

// Seed brings the permission catalog, the superadmin roles, the central tenant and the central
// superadmin into the database. Running it again only adds what is missing.
func Seed(ctx context.Context, cfg *config.Config, database *gorm.DB) (*SeedResult, error) {
	res := &SeedResult{}
	policy := auth.NewKeyPolicy(cfg.RBAC.CentralOnlyKeys...)

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := seedCatalog(tx)
		if err != nil {
			return err
		}

		res.Permissions = created

		central, err := seedCentralSuperadmin(tx)
		if err != nil {
			return err
		}

		if err = grantSuperadmins(tx, policy, central); err != nil {
			return err
		}

		return seedAdmin(ctx, tx, cfg, central, res)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	prov := tenant.NewProvisioner(database, policy, cfg.Tenancy.CentralSlug)
	if _, err = tenant.NewResolver(database, cfg.Tenancy, prov).EnsureCentral(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed central tenant: %w", err)
	}

	if res.AdminPassword != "" {
		log.Warn().Str("email", res.AdminEmail).Msg("bootstrap central superadmin created, change its password")
	}

	log.Info().Int("permissions", res.Permissions).Msg("database seeded")

	return res, nil
}

func seedCatalog(tx *gorm.DB) (int, error) {
	created := 0

	for _, e := range auth.Catalog {
		var count int64
		if err := tx.Model(&models.Permission{}).
			Where("permission_key = ? AND scope_key = ?", e.Key, models.CentralKey).
			Count(&count).Error; err != nil {
			return 0, fmt.Errorf("failed to look up permission %s: %w", e.Key, err)
		}

		if count > 0 {
			continue
		}

		if err := tx.Create(&models.Permission{Key: e.Key, Name: e.Name}).Error; err != nil {
			return 0, fmt.Errorf("failed to seed permission %s: %w", e.Key, err)
		}

		created++
	}

	return created, nil
}

func seedCentralSuperadmin(tx *gorm.DB) (*models.Role, error) {
	role := &models.Role{}

	err := tx.Where("role_key = ? AND scope_key = ?", models.RoleCentralSuperadmin, models.CentralKey).First(role).Error
	if err == nil {
		return role, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up central superadmin role: %w", err)
	}

	*role = models.Role{Key: models.RoleCentralSuperadmin, Name: "Central Superadmin"}
	if err = tx.Create(role).Error; err != nil {
		return nil, fmt.Errorf("failed to seed central superadmin role: %w", err)
	}

	return role, nil
}

// grantSuperadmins gives the central superadmin every global permission and each tenant
// superadmin every global permission a tenant may hold.
func grantSuperadmins(tx *gorm.DB, policy auth.KeyPolicy, central *models.Role) error {
	var globals []models.Permission
	if err := tx.Where("tenant_id IS NULL").Find(&globals).Error; err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}

	var tenantSupers []string
	if err := tx.Model(&models.Role{}).Where("role_key = ? AND tenant_id IS NOT NULL", models.RoleTenantSuperadmin).
		Pluck("id", &tenantSupers).Error; err != nil {
		return fmt.Errorf("failed to load tenant superadmin roles: %w", err)
	}

	var grants []models.RolePermission

	for _, p := range globals {
		grants = append(grants, models.RolePermission{RoleID: central.ID, PermissionID: p.ID})

		if policy.IsCentralOnly(p.Key) {
			continue
		}

		for _, roleID := range tenantSupers {
			grants = append(grants, models.RolePermission{RoleID: roleID, PermissionID: p.ID})
		}
	}

	if len(grants) == 0 {
		return nil
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grants).Error; err != nil {
		return fmt.Errorf("failed to grant superadmin permissions: %w", err)
	}

	return nil
}

// seedAdmin creates the bootstrap central superadmin when nobody holds the role.
func seedAdmin(ctx context.Context, tx *gorm.DB, cfg *config.Config, central *models.Role, res *SeedResult) error {
	var holders int64
	if err := tx.Model(&models.UserRole{}).Where("role_id = ?", central.ID).Count(&holders).Error; err != nil {
		return fmt.Errorf("failed to count central superadmins: %w", err)
	}

	if holders > 0 {
		return nil
	}

	email := auth.NormalizeEmail(cfg.Seed.AdminEmail)
	if email == "" {
		email = defaultAdminEmail
	}

	name := cfg.Seed.AdminName
	if name == "" {
		name = defaultAdminName
	}

	user := &models.User{}

	err := tx.Where("email = ?", email).First(user).Error
	switch {
	case err == nil:
		log.Info().Str("email", email).Msg("promoting existing user to central superadmin")
	case errors.Is(err, gorm.ErrRecordNotFound):
		password, err := uniuri.Password(adminPasswordLen)
		if err != nil {
			return fmt.Errorf("failed to generate bootstrap password: %w", err)
		}

		*user = models.User{Name: name, Email: email, Active: true, EmailVerified: true}

		if err = auth.NewLocalProvider(tx).Provision(ctx, tx, user, password); err != nil {
			return fmt.Errorf("failed to create bootstrap admin: %w", err)
		}

		res.AdminEmail = email
		res.AdminPassword = password
	default:
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	// a central role replaces whatever central role the user held
	if err = tx.Where("user_id = ? AND context_key = ?", user.ID, models.CentralKey).
		Delete(&models.UserRole{}).Error; err != nil {
		return fmt.Errorf("failed to clear central role: %w", err)
	}

	ur := models.NewUserRole(user.ID, central, nil)
	if err = tx.Create(&ur).Error; err != nil {
		return fmt.Errorf("failed to assign central superadmin: %w", err)
	}

	return nil
}
