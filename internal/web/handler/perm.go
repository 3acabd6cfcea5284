package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/tenantadmin/tenantadmin/internal/auth"
)

// Allowed checks key against the permission set the gate middleware stored for the request.
// Routes serving both create and edit pass the gate with either key and pick here.
func Allowed(c *fiber.Ctx, key string) error {
	if auth.PermissionsFromCtx(c).Allows(key) {
		return nil
	}

	return fmt.Errorf("%w: requires %s", auth.ErrForbiddenInsufficientPermissions, key)
}

// CreateOrUpdate returns create when id is empty, update otherwise.
func CreateOrUpdate(id, create, update string) string {
	if id == "" {
		return create
	}

	return update
}
