package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	coreauth "github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
	"github.com/tenantadmin/tenantadmin/internal/web/session"
)

// New creates a Fiber middleware that loads the session user into fiber.Locals. Requests without
// a valid session pass unauthenticated, the permission middleware decides what they may see.
// A session only counts in the tenant context it was created in.
func New(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(session.CookieName)
		if sessionID == "" {
			return c.Next()
		}

		data, err := store.Read(sessionID)
		if err != nil {
			return c.Next()
		}

		if !models.SameTenant(data.TenantID, coreauth.TenantIDFromCtx(c)) {
			log.Debug().Str("user_id", data.UserID).Str("path", c.Path()).Msg("session belongs to another tenant")
			return c.Next()
		}

		c.Locals(coreauth.LocalUserID, data.UserID)

		return c.Next()
	}
}
