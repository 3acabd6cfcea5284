// Package main provides the entry point of TenantAdmin.
// It runs the admin api of a multi-tenant platform on the Fiber framework: tenants are
// resolved from the request host, users hold one role per tenant, and roles carry the
// permissions checked on every request. The application uses gorm for persistence and
// cobra for its commands (start, seed, config dump).
package main
