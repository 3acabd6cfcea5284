package config

import (
	"time"

	"github.com/tenantadmin/tenantadmin/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Tenancy   Tenancy
	RBAC      RBAC
	Token     Token
	Notify    Notify
	Seed      Seed
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool    // disable recover middleware
	Port           int     // listening port for the webserver
	ShutDownTime   int     // wait time for shutdown
	URL            string  // base url for the webserver
	Session        Session // session settings
}

// Tenancy holds the host based tenant resolution settings.
type Tenancy struct {
	CentralSlug       string   // slug of the platform operator tenant
	CentralName       string   // display name of the platform operator tenant
	CentralHosts      []string // hosts that resolve to the central tenant
	FallbackToCentral bool     // unknown hosts use the central tenant, honored in dev mode only
}

// RBAC holds the authorization core settings.
type RBAC struct {
	CacheTTL          time.Duration // permission set cache lifetime, 0 disables the cache
	CacheSize         int           // max cached (user, context) entries
	CentralOnlyKeys   []string      // permission keys reserved for central roles, on top of the built-in ones
	DisableAuditTrail bool          // do not persist audit events (still logged)
}

// Token holds password setup token settings.
type Token struct {
	TTL time.Duration
}

// Notify holds the account notification settings.
type Notify struct {
	Provider    string // log or noop
	FromAddress string
}

// Seed holds the bootstrap data settings used by the seed command.
type Seed struct {
	AdminEmail string
	AdminName  string
}
