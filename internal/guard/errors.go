package guard

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tenantadmin/tenantadmin/internal/auth"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrInvalidRoleKey         = errors.New("role key must match ^[a-z0-9_]+$")
	ErrRoleNameRequired       = errors.New("role name is required")
	ErrInvalidPermissionKey   = errors.New("permission key must be dotted snake_case")
	ErrPermissionNameRequired = errors.New("permission name is required")

	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrUserNotFound       = auth.ErrUserNotFound

	ErrRoleKeyInUse        = errors.New("role key already in use")
	ErrPermissionKeyInUse  = errors.New("permission key already in use")
	ErrEmailInUse          = auth.ErrEmailInUse
	ErrRoleVersionConflict = errors.New("role was modified concurrently")

	ErrRoleProtected                    = errors.New("protected roles cannot be deleted")
	ErrCannotCreateProtectedRole        = errors.New("protected roles cannot be created")
	ErrCannotChangeProtectedKey         = errors.New("the key of a protected role cannot be changed")
	ErrProtectedRolePermissions         = errors.New("the permissions of a protected role cannot be edited")
	ErrCannotDeleteSelf                 = errors.New("users cannot delete themselves")
	ErrCannotDeactivateSelf             = errors.New("users cannot deactivate themselves")
	ErrCannotDeleteLastUser             = errors.New("cannot delete the last administrator")
	ErrCannotDeactivateLastUser         = errors.New("cannot deactivate the last administrator")
	ErrCannotDemoteLastSuperadmin       = errors.New("cannot change the role of the central superadmin")
	ErrCannotChangeOwnRole              = errors.New("users cannot change their own role")
	ErrProtectedUserEdit                = errors.New("only a central superadmin or the user can edit a superadmin")
	ErrSetupLinkWithEmailChange         = errors.New("a setup link cannot be sent while changing the email")
	ErrCentralSuperadminAlreadyAssigned = errors.New("central superadmin is already assigned")
	ErrTenantSuperadminAlreadyAssigned  = errors.New("tenant superadmin is already assigned")

	ErrRoleInUse       = errors.New("role is still assigned to users")
	ErrPermissionInUse = errors.New("permission is still attached to roles")

	ErrAttemptedPrivilegeEscalation = errors.New("attempted privilege escalation")
	ErrRoleTenantMismatch           = errors.New("role belongs to another tenant")
	ErrRoleScopeMismatch            = errors.New("role scope does not match the context")
)

// ValidationError lists the invalid input fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}

	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Fields[f]))
	}

	return ErrValidation.Error() + ": " + strings.Join(parts, ", ")
}

// Is makes errors.Is(err, ErrValidation) work.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, problem string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: problem}}
}

// ValidationErrorOf turns validator errors into a *ValidationError. Other errors are returned as is.
func ValidationErrorOf(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		if fe.Param() != "" {
			out.Fields[fe.Field()] = fe.Tag() + "=" + fe.Param()
		} else {
			out.Fields[fe.Field()] = fe.Tag()
		}
	}

	return out
}
