// Package tenant provides the tenant provisioning endpoint of the central context.
package tenant

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/web/handler"
)

// Path is the base path for tenant management.
const Path = handler.APIPath + "/tenants"

// Request creates a tenant.
type Request struct {
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// Service provides the tenant endpoints.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	app.Post(Path,
		auth.RequireCentralSuperadmin(deps.Gate),
		auth.RequireAnyPermission(deps.Gate, auth.PermManageTenants, auth.PermTenantsCreate),
		s.Create,
	)

	return nil
}

// Create provisions a tenant with its domain and superadmin role.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(Request)
	if err := handler.Parse(c, req); err != nil {
		return handler.Error(c, err)
	}

	t, err := s.deps.Provisioner.Create(c.UserContext(), req.Slug, req.Name, req.Domain)
	if err != nil {
		return handler.Error(c, err)
	}

	log.Info().Str("tenant", t.Slug).Str("actor_id", auth.UserIDFromCtx(c)).Msg("tenant provisioned")

	return c.Status(fiber.StatusCreated).JSON(t)
}
