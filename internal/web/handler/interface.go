package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/config"
	"github.com/tenantadmin/tenantadmin/internal/guard"
	"github.com/tenantadmin/tenantadmin/internal/tenant"
	"github.com/tenantadmin/tenantadmin/internal/token"
	"github.com/tenantadmin/tenantadmin/internal/web/session"
)

// ErrNilDeps is returned by Init when the app or its dependencies are missing.
var ErrNilDeps = errors.New(ErrNilDepsFatalLogMsg)

// Deps bundles the services the handlers work with.
type Deps struct {
	Cfg         *config.Config
	DB          *gorm.DB
	Gate        *auth.Gate
	Provider    *auth.LocalProvider
	Roles       *guard.RoleGuard
	Users       *guard.UserGuard
	Provisioner *tenant.Provisioner
	Tokens      *token.Store
	Sessions    *session.Store
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps *Deps) error
}
