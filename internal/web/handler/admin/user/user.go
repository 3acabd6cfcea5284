// Package user provides the user endpoints of the admin api.
package user

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/guard"
	"github.com/tenantadmin/tenantadmin/internal/web/handler"
)

// Path is the base path for user management.
const Path = handler.APIPath + "/users"

// Request is a user create (no id) or profile edit together with the user's role in the context.
type Request struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	RoleID        string `json:"role_id"`
	AvatarURL     string `json:"avatar_url"`
	Password      string `json:"password"`
	SendSetupLink bool   `json:"send_setup_link"`
}

// ActiveRequest toggles an account.
type ActiveRequest struct {
	Active bool `json:"active"`
}

// Service provides the user endpoints. Authorization happens in the user guard, which lets
// central superadmins act in every tenant.
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

	authenticated := auth.RequireAnyPermission(deps.Gate)

	app.Post(Path, authenticated, s.Upsert)
	app.Delete(Path+"/:id", authenticated, s.Delete)
	app.Post(Path+"/:id/active", authenticated, s.ToggleActive)

	return nil
}

// Upsert creates a user or edits a profile and role.
func (s *Service) Upsert(c *fiber.Ctx) error {
	req := new(Request)
	if err := handler.Parse(c, req); err != nil {
		return handler.Error(c, err)
	}

	res, err := s.deps.Users.CreateOrUpdateUser(c.UserContext(), auth.UserIDFromCtx(c), auth.TenantIDFromCtx(c),
		guard.UserInput{
			ID:            req.ID,
			Name:          req.Name,
			Email:         req.Email,
			RoleID:        req.RoleID,
			AvatarURL:     req.AvatarURL,
			Password:      req.Password,
			SendSetupLink: req.SendSetupLink,
		})
	if err != nil {
		return handler.Error(c, err)
	}

	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}

	// the setup token only travels through the notifier
	return c.Status(status).JSON(fiber.Map{
		"user":              res.User,
		"role":              res.Role,
		"setup_link_issued": res.SetupToken != "",
	})
}

// Delete removes the user from the context.
func (s *Service) Delete(c *fiber.Ctx) error {
	err := s.deps.Users.DeleteUser(c.UserContext(), auth.UserIDFromCtx(c), c.Params("id"), auth.TenantIDFromCtx(c))
	if err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleActive activates or deactivates an account.
func (s *Service) ToggleActive(c *fiber.Ctx) error {
	req := new(ActiveRequest)
	if err := handler.Parse(c, req); err != nil {
		return handler.Error(c, err)
	}

	err := s.deps.Users.ToggleActive(c.UserContext(), auth.UserIDFromCtx(c), c.Params("id"), req.Active,
		auth.TenantIDFromCtx(c))
	if err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
