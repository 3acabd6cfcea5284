package auth

import "errors"

var (
	// ErrUnauthorized is returned when an operation requires an authenticated user and none is given.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbiddenInsufficientPermissions is returned when the user's permission set allows none of the required keys.
	ErrForbiddenInsufficientPermissions = errors.New("forbidden: insufficient permissions")

	// ErrForbiddenCentralAccess is returned when a central context operation is attempted without central superadmin.
	ErrForbiddenCentralAccess = errors.New("forbidden: central access requires central superadmin")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidPassword is returned when the provided password is incorrect during authentication.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserNotFound is returned when a user cannot be found in the database.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailInUse is returned when provisioning an identity for an email that already exists.
	ErrEmailInUse = errors.New("email already in use")
)
