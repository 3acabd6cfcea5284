// Package auth answers what a user may do in a tenant context.
//
// # Permission aggregation
//
// Service.GetPermissions collects the permission keys of every role the user holds that applies
// to the context: central roles always, tenant roles only inside their own tenant. Deactivated
// users hold nothing. Results may be cached in an expiring LRU; writers call Invalidate or
// InvalidateAll after committing.
//
// # Capabilities
//
// Keys are plain strings. The manage_* keys imply groups of fine grained keys (see Implies), so
// callers ask PermissionSet.Allows instead of comparing strings. KeyPolicy marks the keys that
// can never be granted inside a tenant.
//
// # Gate and middleware
//
// Gate.RequireAny and Gate.RequireCentral return ErrUnauthorized, ErrForbiddenInsufficientPermissions
// or ErrForbiddenCentralAccess. RequireAnyPermission wraps the gate for fiber routes and expects the
// user id and tenant context in the request locals.
//
// Example usage:
//
//	svc := auth.NewService(db, auth.WithCache(4096, 30*time.Second))
//	gate := auth.NewGate(svc, prometheus.DefaultRegisterer)
//
//	app.Get("/api/roles",
//	    auth.RequireAnyPermission(gate, auth.PermRolesView),
//	    handler,
//	)
//
// # Identity
//
// LocalProvider stores Argon2id password hashes in the users table and authenticates by email.
package auth
