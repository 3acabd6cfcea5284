package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/guard"
	"github.com/tenantadmin/tenantadmin/internal/tenant"
	"github.com/tenantadmin/tenantadmin/internal/token"
)

// ErrBadRequest is returned for bodies that can not be parsed.
var ErrBadRequest = errors.New("malformed request body")

// statusOf groups the core errors by the status they are answered with. Order matters:
// the first matching group wins.
var statusOf = []struct { //nolint:gochecknoglobals
	status int
	errs   []error
}{
	{fiber.StatusBadRequest, []error{
		ErrBadRequest,
		token.ErrTokenInvalid,
		token.ErrTokenExpired,
	}},
	{fiber.StatusUnauthorized, []error{
		auth.ErrUnauthorized,
		auth.ErrInvalidPassword,
	}},
	{fiber.StatusForbidden, []error{
		auth.ErrForbiddenInsufficientPermissions,
		auth.ErrForbiddenCentralAccess,
		auth.ErrUserAccountDisabled,
		guard.ErrAttemptedPrivilegeEscalation,
		guard.ErrRoleTenantMismatch,
		guard.ErrRoleScopeMismatch,
		guard.ErrCannotChangeOwnRole,
		guard.ErrProtectedUserEdit,
	}},
	{fiber.StatusNotFound, []error{
		guard.ErrRoleNotFound,
		guard.ErrPermissionNotFound,
		guard.ErrUserNotFound,
		tenant.ErrTenantNotFound,
	}},
	{fiber.StatusConflict, []error{
		guard.ErrRoleKeyInUse,
		guard.ErrPermissionKeyInUse,
		guard.ErrEmailInUse,
		guard.ErrRoleVersionConflict,
		guard.ErrRoleProtected,
		guard.ErrCannotCreateProtectedRole,
		guard.ErrCannotChangeProtectedKey,
		guard.ErrProtectedRolePermissions,
		guard.ErrCannotDeleteSelf,
		guard.ErrCannotDeactivateSelf,
		guard.ErrCannotDeleteLastUser,
		guard.ErrCannotDeactivateLastUser,
		guard.ErrCannotDemoteLastSuperadmin,
		guard.ErrCentralSuperadminAlreadyAssigned,
		guard.ErrTenantSuperadminAlreadyAssigned,
		guard.ErrRoleInUse,
		guard.ErrPermissionInUse,
		tenant.ErrTenantSlugInUse,
		tenant.ErrTenantDomainInUse,
	}},
	{fiber.StatusUnprocessableEntity, []error{
		guard.ErrValidation,
		guard.ErrInvalidRoleKey,
		guard.ErrRoleNameRequired,
		guard.ErrInvalidPermissionKey,
		guard.ErrPermissionNameRequired,
		guard.ErrSetupLinkWithEmailChange,
		tenant.ErrInvalidTenantSlug,
		tenant.ErrTenantNameRequired,
		tenant.ErrCentralSlugReserved,
	}},
}

// Status returns the http status an error is answered with.
func Status(err error) int {
	for _, group := range statusOf {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}

	return fiber.StatusInternalServerError
}

// Error writes err as json. Unexpected errors are logged and hidden from the client.
func Error(c *fiber.Ctx, err error) error {
	status := Status(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("user_id", auth.UserIDFromCtx(c)).Msg("request failed")
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}

	body := fiber.Map{"error": err.Error()}

	var verr *guard.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}

	return c.Status(status).JSON(body)
}

// Parse decodes the request body into out.
func Parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return errors.Join(ErrBadRequest, err)
	}

	return nil
}
