// Package tenant maps request hosts to tenants and provisions new tenants.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/config"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
)

// Resolver maps hosts to tenants. It never falls back to the central tenant for unknown hosts.
type Resolver struct {
	db           *gorm.DB
	prov         *Provisioner
	centralSlug  string
	centralName  string
	centralHosts map[string]struct{}

	mu      sync.Mutex
	central *models.Tenant
}

// NewResolver creates a resolver for the given tenancy settings.
func NewResolver(db *gorm.DB, cfg config.Tenancy, prov *Provisioner) *Resolver {
	hosts := make(map[string]struct{}, len(cfg.CentralHosts))
	for _, h := range cfg.CentralHosts {
		hosts[NormalizeHost(h)] = struct{}{}
	}

	return &Resolver{
		db:           db,
		prov:         prov,
		centralSlug:  cfg.CentralSlug,
		centralName:  cfg.CentralName,
		centralHosts: hosts,
	}
}

// Resolve returns the tenant serving host. Central hosts always resolve, creating the central
// tenant on first use.
func (r *Resolver) Resolve(ctx context.Context, host string) (*models.Tenant, error) {
	host = NormalizeHost(host)

	if _, ok := r.centralHosts[host]; ok {
		return r.EnsureCentral(ctx)
	}

	if host == "" {
		return nil, ErrTenantNotFound
	}

	var domain models.TenantDomain

	err := r.db.WithContext(ctx).Where("domain = ?", host).First(&domain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, host)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to look up domain: %w", err)
	}

	var t models.Tenant
	if err = r.db.WithContext(ctx).Where("id = ?", domain.TenantID).First(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to load tenant of %s: %w", host, err)
	}

	return &t, nil
}

// EnsureCentral returns the central tenant, creating it together with its superadmin role when missing.
func (r *Resolver) EnsureCentral(ctx context.Context) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.central != nil {
		t := *r.central
		return &t, nil
	}

	t, err := r.prov.ensure(ctx, r.centralSlug, r.centralName)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("tenant", t.Slug).Str("tenant_id", t.ID).Msg("central tenant ready")

	r.central = t
	c := *t

	return &c, nil
}

// IsCentral reports whether t is the central tenant.
func (r *Resolver) IsCentral(t *models.Tenant) bool {
	return t != nil && t.Slug == r.centralSlug
}

// Context maps a tenant to the context id used by the core: nil for the central tenant.
func (r *Resolver) Context(t *models.Tenant) *string {
	if t == nil || r.IsCentral(t) {
		return nil
	}

	id := t.ID

	return &id
}
