// Package permission provides the permission endpoints of the admin api.
package permission

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/guard"
	"github.com/tenantadmin/tenantadmin/internal/web/handler"
)

// Path is the base path for permission management.
const Path = handler.APIPath + "/permissions"

// Request is a permission create (no id) or edit.
type Request struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Service provides the permission endpoints.
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
		auth.RequireAnyPermission(deps.Gate, auth.PermPermissionsView),
		s.List,
	)
	app.Post(Path,
		auth.RequireAnyPermission(deps.Gate, auth.PermPermissionsCreate, auth.PermPermissionsUpdate),
		s.Upsert,
	)
	app.Delete(Path+"/:id",
		auth.RequireAnyPermission(deps.Gate, auth.PermPermissionsDelete),
		s.Delete,
	)

	return nil
}

// List returns the permissions usable in the request's context.
func (s *Service) List(c *fiber.Ctx) error {
	perms, err := s.deps.Roles.ListPermissions(c.UserContext(), auth.TenantIDFromCtx(c))
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(perms)
}

// Upsert creates or edits a permission owned by the request's context.
func (s *Service) Upsert(c *fiber.Ctx) error {
	req := new(Request)
	if err := handler.Parse(c, req); err != nil {
		return handler.Error(c, err)
	}

	key := handler.CreateOrUpdate(req.ID, auth.PermPermissionsCreate, auth.PermPermissionsUpdate)
	if err := handler.Allowed(c, key); err != nil {
		return handler.Error(c, err)
	}

	perm, err := s.deps.Roles.UpsertPermission(c.UserContext(), guard.PermissionInput{
		ID:       req.ID,
		Key:      req.Key,
		Name:     req.Name,
		TenantID: auth.TenantIDFromCtx(c),
		ActorID:  auth.UserIDFromCtx(c),
	})
	if err != nil {
		return handler.Error(c, err)
	}

	status := fiber.StatusOK
	if req.ID == "" {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(perm)
}

// Delete removes a permission that no regular role holds.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.deps.Roles.DeletePermission(c.UserContext(), c.Params("id"), auth.TenantIDFromCtx(c)); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
