// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"net/url"

	"github.com/tenantadmin/tenantadmin/internal/config"
)

// DefaultSQLitePath is used when the sqlite driver is configured without a path.
const DefaultSQLitePath = "tenantadmin.db"

// Create builds the Data Source Name for the configured driver.
//
// mysql gets the go-sql-driver form, postgres a postgres:// URI that pgx and the session
// storage both accept, sqlite the file path.
func Create(cfg *config.Config) string {
	switch cfg.DB.Driver {
	case "postgres":
		return postgresURI(&cfg.DB)
	case "sqlite", "":
		if cfg.DB.Path == "" {
			return DefaultSQLitePath
		}

		return cfg.DB.Path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Name,
			cfg.DB.Extras,
		)
	}
}

func postgresURI(db *config.DB) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.User, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     "/" + db.Name,
		RawQuery: db.Extras,
	}

	return u.String()
}
