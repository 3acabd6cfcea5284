// Package tenant resolves the tenant context of a request from its host.
package tenant

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	coretenant "github.com/tenantadmin/tenantadmin/internal/tenant"
)

// New creates a Fiber middleware storing the request's tenant in fiber.Locals. Unknown hosts are
// answered with 404 unless fallback is set, then they are served by the central tenant.
func New(resolver *coretenant.Resolver, fallback bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := resolver.Resolve(c.UserContext(), c.Hostname())
		if errors.Is(err, coretenant.ErrTenantNotFound) && fallback {
			log.Debug().Str("host", c.Hostname()).Msg("unknown host, using central tenant")
			t, err = resolver.EnsureCentral(c.UserContext())
		}

		if errors.Is(err, coretenant.ErrTenantNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}

		if err != nil {
			log.Error().Err(err).Str("host", c.Hostname()).Msg("failed to resolve tenant")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		}

		c.Locals(auth.LocalTenantID, resolver.Context(t))
		c.Locals(auth.LocalTenantSlug, t.Slug)

		return c.Next()
	}
}
