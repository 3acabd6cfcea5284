package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Keys of the fiber locals the web layer fills before the permission middleware runs.
const (
	LocalUserID     = "user_id"
	LocalTenantID   = "tenant_id"
	LocalTenantSlug = "tenant_slug"
	LocalPerms      = "permissions"
)

// LoginPath is where page requests without a session are sent.
const LoginPath = "/login"

// UserIDFromCtx returns the authenticated user id, or "".
func UserIDFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// TenantIDFromCtx returns the tenant context of the request, nil meaning central.
func TenantIDFromCtx(c *fiber.Ctx) *string {
	id, _ := c.Locals(LocalTenantID).(*string)
	return id
}

// PermissionsFromCtx returns the permission set stored by RequireAnyPermission.
func PermissionsFromCtx(c *fiber.Ctx) PermissionSet {
	set, _ := c.Locals(LocalPerms).(PermissionSet)
	return set
}

// RequireAnyPermission creates Fiber middleware that requires at least one of the given permissions
// in the request's tenant context.
func RequireAnyPermission(gate *Gate, permissions ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserIDFromCtx(c)

		set, err := gate.RequireAny(c.UserContext(), userID, TenantIDFromCtx(c), permissions...)
		if err != nil {
			return deny(c, err, userID, permissions)
		}

		c.Locals(LocalPerms, set)

		return c.Next()
	}
}

// RequireCentralSuperadmin creates Fiber middleware that only lets central superadmins pass,
// and only in the central context.
func RequireCentralSuperadmin(gate *Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserIDFromCtx(c)

		if err := gate.RequireCentral(c.UserContext(), userID); err != nil {
			return deny(c, err, userID, nil)
		}

		if TenantIDFromCtx(c) != nil {
			return deny(c, ErrForbiddenCentralAccess, userID, nil)
		}

		return c.Next()
	}
}

func deny(c *fiber.Ctx, err error, userID string, permissions []string) error {
	page := wantsHTML(c)

	switch {
	case errors.Is(err, ErrUnauthorized):
		if page {
			return c.Redirect(LoginPath)
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrForbiddenInsufficientPermissions), errors.Is(err, ErrForbiddenCentralAccess):
		log.Warn().Str("user_id", userID).Strs("permissions", permissions).Str("path", c.Path()).
			Msg("User lacks required permissions")

		if page {
			return c.Status(fiber.StatusForbidden).SendString("Forbidden: You don't have permission to access this resource")
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to check permissions")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

func wantsHTML(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML)
}
