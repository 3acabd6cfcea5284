// Package daemon wires the database, the session storage and the web service.
package daemon

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/config"
	"github.com/tenantadmin/tenantadmin/internal/db"
	"github.com/tenantadmin/tenantadmin/internal/db/dsn"
	"github.com/tenantadmin/tenantadmin/internal/token"
	"github.com/tenantadmin/tenantadmin/internal/web"
)

// sessionTable holds the login sessions in sql backed session storage.
const sessionTable = "sessions"

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	webService *web.Service
}

// Start starts the Daemon's web service and blocks until it is shut down.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// DB returns the database of the daemon.
func (d *Daemon) DB() *gorm.DB {
	return d.db
}

// Web returns the web service of the daemon.
func (d *Daemon) Web() *web.Service {
	return d.webService
}

// New opens and migrates the database, seeds it and creates the web service.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	database, err := db.Open(cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if err = db.Migrate(database); err != nil {
		return nil, err //nolint:wrapcheck
	}

	if _, err = Seed(ctx, cfg, database); err != nil {
		return nil, err
	}

	purged, err := token.NewStore(database, cfg.Token.TTL).PurgeExpired(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if purged > 0 {
		log.Info().Int64("count", purged).Msg("purged expired password setup tokens")
	}

	webService, err := web.New(cfg, database, web.Options{Sessions: sessionStorage(cfg)})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &Daemon{
		cfg:        cfg,
		db:         database,
		webService: webService,
	}, nil
}

// sessionStorage keeps sessions next to the data for sql servers. Sqlite deployments run a
// single process and keep sessions in memory.
func sessionStorage(cfg *config.Config) fiber.Storage {
	switch cfg.DB.Driver {
	case "mysql":
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         sessionTable,
		})
	case "postgres":
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         sessionTable,
		})
	default:
		log.Debug().Str("driver", cfg.DB.Driver).Msg("sessions are kept in memory")
		return nil
	}
}
