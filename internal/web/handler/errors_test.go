package handler

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/guard"
	"github.com/tenantadmin/tenantadmin/internal/tenant"
	"github.com/tenantadmin/tenantadmin/internal/token"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrBadRequest, fiber.StatusBadRequest},
		{token.ErrTokenExpired, fiber.StatusBadRequest},
		{auth.ErrUnauthorized, fiber.StatusUnauthorized},
		{fmt.Errorf("%w: requires users.create", auth.ErrForbiddenInsufficientPermissions), fiber.StatusForbidden},
		{guard.ErrAttemptedPrivilegeEscalation, fiber.StatusForbidden},
		{guard.ErrUserNotFound, fiber.StatusNotFound},
		{tenant.ErrTenantNotFound, fiber.StatusNotFound},
		{guard.ErrCentralSuperadminAlreadyAssigned, fiber.StatusConflict},
		{guard.ErrCannotDeleteLastUser, fiber.StatusConflict},
		{&guard.ValidationError{Fields: map[string]string{"Email": "email"}}, fiber.StatusUnprocessableEntity},
		{guard.ErrInvalidRoleKey, fiber.StatusUnprocessableEntity},
		{guard.ErrProtectedUserEdit, fiber.StatusForbidden},
		{guard.ErrCannotChangeOwnRole, fiber.StatusForbidden},
		{guard.ErrSetupLinkWithEmailChange, fiber.StatusUnprocessableEntity},
		{fmt.Errorf("boom"), fiber.StatusInternalServerError}, //nolint:goerr113
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}
