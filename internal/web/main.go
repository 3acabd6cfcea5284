// Package web wires the fiber app of the admin api.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/audit"
	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/config"
	"github.com/tenantadmin/tenantadmin/internal/guard"
	fiberlogger "github.com/tenantadmin/tenantadmin/internal/logger/adapter/fiber"
	"github.com/tenantadmin/tenantadmin/internal/notify"
	"github.com/tenantadmin/tenantadmin/internal/tenant"
	"github.com/tenantadmin/tenantadmin/internal/token"
	"github.com/tenantadmin/tenantadmin/internal/web/handler"
	"github.com/tenantadmin/tenantadmin/internal/web/handler/admin/permission"
	"github.com/tenantadmin/tenantadmin/internal/web/handler/admin/role"
	tenanthandler "github.com/tenantadmin/tenantadmin/internal/web/handler/admin/tenant"
	"github.com/tenantadmin/tenantadmin/internal/web/handler/admin/user"
	"github.com/tenantadmin/tenantadmin/internal/web/handler/login"
	"github.com/tenantadmin/tenantadmin/internal/web/handler/logout"
	"github.com/tenantadmin/tenantadmin/internal/web/handler/me"
	"github.com/tenantadmin/tenantadmin/internal/web/handler/metrics"
	"github.com/tenantadmin/tenantadmin/internal/web/handler/password"
	authmiddleware "github.com/tenantadmin/tenantadmin/internal/web/middleware/auth"
	tenantmiddleware "github.com/tenantadmin/tenantadmin/internal/web/middleware/tenant"
	"github.com/tenantadmin/tenantadmin/internal/web/session"
)

// CheckAlivePath answers load balancer health checks.
const CheckAlivePath = "/checkalive"

// ErrNilArgument is returned by New when the config or the db is missing.
var ErrNilArgument = errors.New("config and db are required")

// Options are the optional collaborators of the web service.
type Options struct {
	// Sessions is the session storage, nil keeps sessions in memory.
	Sessions fiber.Storage
	// Notifier receives account notifications, nil selects the one configured in cfg.Notify.
	Notifier notify.Notifier
	// Registerer and Gatherer default to the prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	deps         *handler.Deps
	resolver     *tenant.Resolver
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	// Wait interrupt or shutdown request through /shutdown
	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// Resolver returns the tenant resolver of the service.
func (s *Service) Resolver() *tenant.Resolver {
	return s.resolver
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB, opts Options) (*Service, error) {
	if cfg == nil || db == nil {
		return nil, ErrNilArgument
	}

	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}

	if opts.Notifier == nil {
		n, err := notify.New(cfg)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		opts.Notifier = n
	}

	deps, resolver := newDeps(cfg, db, opts)

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		db:           db,
		deps:         deps,
		resolver:     resolver,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	// health checks and scrapes are served without a tenant
	app.Get(CheckAlivePath, service.checkAlive)
	metrics.Init(app, opts.Gatherer)

	app.Use(tenantmiddleware.New(resolver, cfg.DevMode && cfg.Tenancy.FallbackToCentral))
	app.Use(authmiddleware.New(deps.Sessions))

	// init handlers (they register their own routes with permission checks)
	for _, h := range []handler.Service{
		&login.Handler,
		&logout.Handler,
		&me.Handler,
		&role.Handler,
		&permission.Handler,
		&user.Handler,
		&tenanthandler.Handler,
		&password.Handler,
	} {
		if err := h.Init(app, deps); err != nil {
			return nil, err //nolint:wrapcheck
		}
	}

	return service, nil
}

func newDeps(cfg *config.Config, db *gorm.DB, opts Options) (*handler.Deps, *tenant.Resolver) {
	// without a db the recorder only logs
	auditDB := db
	if cfg.RBAC.DisableAuditTrail {
		auditDB = nil
	}

	rec := audit.New(auditDB)

	policy := auth.NewKeyPolicy(cfg.RBAC.CentralOnlyKeys...)
	svc := auth.NewService(db, auth.WithCache(cfg.RBAC.CacheSize, cfg.RBAC.CacheTTL))
	provider := auth.NewLocalProvider(db)
	tokens := token.NewStore(db, cfg.Token.TTL)
	prov := tenant.NewProvisioner(db, policy, cfg.Tenancy.CentralSlug)

	return &handler.Deps{
		Cfg:         cfg,
		DB:          db,
		Gate:        auth.NewGate(svc, opts.Registerer),
		Provider:    provider,
		Roles:       guard.NewRoleGuard(db, svc, policy, rec),
		Users:       guard.NewUserGuard(db, svc, provider, tokens, opts.Notifier, rec),
		Provisioner: prov,
		Tokens:      tokens,
		Sessions:    session.New(opts.Sessions, cfg.Webserver.Session.ExpiryTime),
	}, tenant.NewResolver(db, cfg.Tenancy, prov)
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}
