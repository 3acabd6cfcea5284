package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/db"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Provisioner creates tenants.
type Provisioner struct {
	db          *gorm.DB
	policy      auth.KeyPolicy
	centralSlug string
}

// NewProvisioner creates a provisioner. Tenant superadmin roles are granted every global
// permission the policy does not reserve for the central context.
func NewProvisioner(db *gorm.DB, policy auth.KeyPolicy, centralSlug string) *Provisioner {
	return &Provisioner{db: db, policy: policy, centralSlug: centralSlug}
}

// Create registers a tenant, its primary domain and its tenant_superadmin role in one transaction.
// An empty domain creates a tenant reachable only through the central context.
func (p *Provisioner) Create(ctx context.Context, slug, name, domain string) (*models.Tenant, error) {
	slug = strings.TrimSpace(slug)
	name = strings.TrimSpace(name)
	domain = NormalizeHost(domain)

	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidTenantSlug
	}

	if slug == p.centralSlug {
		return nil, ErrCentralSlugReserved
	}

	if name == "" {
		return nil, ErrTenantNameRequired
	}

	t := &models.Tenant{Slug: slug, Name: name}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Tenant{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check slug: %w", err)
		}

		if count > 0 {
			return ErrTenantSlugInUse
		}

		if err := tx.Create(t).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return ErrTenantSlugInUse
			}

			return fmt.Errorf("failed to create tenant: %w", err)
		}

		if domain != "" {
			d := &models.TenantDomain{TenantID: t.ID, Domain: domain}
			if err := tx.Create(d).Error; err != nil {
				if db.IsUniqueViolation(err) {
					return ErrTenantDomainInUse
				}

				return fmt.Errorf("failed to create domain: %w", err)
			}

			t.Domain = d
		}

		return p.superadminRole(tx, t)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("tenant", t.Slug).Str("tenant_id", t.ID).Str("domain", domain).Msg("tenant created")

	return t, nil
}

// ensure returns the tenant with slug, creating it when missing. Concurrent creators are
// resolved by the unique slug index.
func (p *Provisioner) ensure(ctx context.Context, slug, name string) (*models.Tenant, error) {
	var t models.Tenant

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("slug = ?", slug).First(&t).Error
		if err == nil {
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load tenant %s: %w", slug, err)
		}

		t = models.Tenant{Slug: slug, Name: name}
		if err = tx.Create(&t).Error; err != nil {
			return fmt.Errorf("failed to create tenant %s: %w", slug, err)
		}

		return p.superadminRole(tx, &t)
	})
	if err != nil && db.IsUniqueViolation(err) {
		t = models.Tenant{}
		err = p.db.WithContext(ctx).Where("slug = ?", slug).First(&t).Error
	}

	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (p *Provisioner) superadminRole(tx *gorm.DB, t *models.Tenant) error {
	role := &models.Role{Key: models.RoleTenantSuperadmin, Name: "Tenant Superadmin", TenantID: &t.ID}
	if err := tx.Create(role).Error; err != nil {
		return fmt.Errorf("failed to create tenant superadmin role: %w", err)
	}

	var globals []models.Permission
	if err := tx.Where("tenant_id IS NULL").Find(&globals).Error; err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}

	links := make([]models.RolePermission, 0, len(globals))

	for _, perm := range globals {
		if p.policy.IsCentralOnly(perm.Key) {
			continue
		}

		links = append(links, models.RolePermission{RoleID: role.ID, PermissionID: perm.ID})
	}

	if len(links) == 0 {
		return nil
	}

	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to grant tenant superadmin permissions: %w", err)
	}

	return nil
}
