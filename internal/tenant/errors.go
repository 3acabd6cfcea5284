package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when no tenant is registered for a host.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrInvalidTenantSlug is returned for slugs that are not lower-case url safe words.
	ErrInvalidTenantSlug = errors.New("invalid tenant slug")
	// ErrTenantNameRequired is returned when creating a tenant without a name.
	ErrTenantNameRequired = errors.New("tenant name is required")
	// ErrTenantSlugInUse is returned when the slug is taken.
	ErrTenantSlugInUse = errors.New("tenant slug already in use")
	// ErrTenantDomainInUse is returned when the domain already maps to a tenant.
	ErrTenantDomainInUse = errors.New("tenant domain already in use")
	// ErrCentralSlugReserved is returned when provisioning a tenant with the central slug.
	ErrCentralSlugReserved = errors.New("slug is reserved for the central tenant")
)
