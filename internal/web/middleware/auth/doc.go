// Package auth provides the session middleware of the admin api.
//
// The middleware reads the session cookie, loads the session from the session store and puts
// the user id into fiber.Locals under auth.LocalUserID. It never rejects a request on its own:
// the permission middleware of the core auth package answers unauthenticated requests with a
// redirect to the login page or a json 401.
//
// Usage:
//
//	app.Use(tenantmiddleware.New(resolver, fallback))
//	app.Use(authmiddleware.New(sessions))
//
// The tenant middleware has to run first, a session is only valid in the tenant context it
// was created in.
package auth
