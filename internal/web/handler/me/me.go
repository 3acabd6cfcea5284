// Package me tells the logged in user what they may do in the current context.
package me

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/web/handler"
)

// Path of the permission endpoint.
const Path = handler.APIPath + "/me/permissions"

// Service is the me handler service.
type Service struct {
	handler.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil {
		return handler.ErrNilDeps
	}

	app.Get(Path, auth.RequireAnyPermission(deps.Gate), s.Permissions)

	return nil
}

// Permissions lists the permission keys of the user in the request's context.
func (s *Service) Permissions(c *fiber.Ctx) error {
	slug, _ := c.Locals(auth.LocalTenantSlug).(string)

	return c.JSON(fiber.Map{
		"user_id":     auth.UserIDFromCtx(c),
		"tenant":      slug,
		"permissions": auth.PermissionsFromCtx(c).Keys(),
	})
}
