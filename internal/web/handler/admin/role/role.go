// Package role provides the role endpoints of the admin api.
package role

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/db/models"
	"github.com/tenantadmin/tenantadmin/internal/guard"
	"github.com/tenantadmin/tenantadmin/internal/web/handler"
)

// Path is the base path for role management.
const Path = handler.APIPath + "/roles"

// Request is a role create (no id) or edit. A missing permission_ids field keeps the
// permissions of an edited role, an empty list removes them.
type Request struct {
	ID            string   `json:"id"`
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	PermissionIDs []string `json:"permission_ids"`
	Version       int      `json:"version"`
}

// Response is a role with its permission ids.
type Response struct {
	models.Role
	PermissionIDs []string `json:"permission_ids"`
}

// Service provides the role endpoints.
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

	app.Get(Path,
		auth.RequireAnyPermission(deps.Gate, auth.PermRolesView),
		s.List,
	)
	app.Post(Path,
		auth.RequireAnyPermission(deps.Gate, auth.PermRolesCreate, auth.PermRolesUpdate),
		s.Upsert,
	)
	app.Delete(Path+"/:id",
		auth.RequireAnyPermission(deps.Gate, auth.PermRolesDelete),
		s.Delete,
	)

	return nil
}

// List returns the roles of the request's context.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := s.deps.Roles.ListRoles(c.UserContext(), auth.TenantIDFromCtx(c))
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(roles)
}

// Upsert creates or edits a role in the request's context.
func (s *Service) Upsert(c *fiber.Ctx) error {
	req := new(Request)
	if err := handler.Parse(c, req); err != nil {
		return handler.Error(c, err)
	}

	if err := handler.Allowed(c, handler.CreateOrUpdate(req.ID, auth.PermRolesCreate, auth.PermRolesUpdate)); err != nil {
		return handler.Error(c, err)
	}

	role, err := s.deps.Roles.UpsertRole(c.UserContext(), guard.RoleInput{
		ID:            req.ID,
		Key:           req.Key,
		Name:          req.Name,
		TenantID:      auth.TenantIDFromCtx(c),
		PermissionIDs: req.PermissionIDs,
		Version:       req.Version,
		ActorID:       auth.UserIDFromCtx(c),
	})
	if err != nil {
		return handler.Error(c, err)
	}

	ids, err := s.deps.Roles.RolePermissionIDs(c.UserContext(), role.ID)
	if err != nil {
		return handler.Error(c, err)
	}

	status := fiber.StatusOK
	if req.ID == "" {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(Response{Role: *role, PermissionIDs: ids})
}

// Delete removes a role that nobody holds.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.deps.Roles.DeleteRole(c.UserContext(), c.Params("id"), auth.TenantIDFromCtx(c)); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
