// Package login starts sessions for local accounts.
package login

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tenantadmin/tenantadmin/internal/auth"
	"github.com/tenantadmin/tenantadmin/internal/web/handler"
	"github.com/tenantadmin/tenantadmin/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = auth.LoginPath
)

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

// Service is the login handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	creds := new(Credentials)
	if err := handler.Parse(c, creds); err != nil {
		return handler.Error(c, err)
	}

	tenantID := auth.TenantIDFromCtx(c)

	user, err := s.deps.Provider.Authenticate(c.UserContext(), creds.Email, creds.Password)
	switch {
	case errors.Is(err, auth.ErrUserAccountDisabled):
		return handler.Error(c, err)
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidPassword):
		log.Info().Str("email", auth.NormalizeEmail(creds.Email)).Msg("failed login")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": ErrInvalidCredentials.Error()})
	case err != nil:
		return handler.Error(c, err)
	}

	ok, err := s.deps.Gate.Service().CanEnter(c.UserContext(), user.ID, tenantID)
	if err != nil {
		return handler.Error(c, err)
	}

	if !ok {
		log.Info().Str("user_id", user.ID).Str("tenant", c.Hostname()).Msg("login outside of the user's tenants")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": ErrInvalidCredentials.Error()})
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		return handler.Error(c, err)
	}

	if err = s.deps.Sessions.Write(sessionID, &session.Data{
		UserID:   user.ID,
		TenantID: tenantID,
		Created:  time.Now(),
	}); err != nil {
		return handler.Error(c, err)
	}

	// set login cookie
	cookieSettings := &fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		MaxAge:   int(s.deps.Sessions.Expiry().Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}

	if s.deps.Cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	log.Info().Str("user_id", user.ID).Msg("user logged in")

	return c.JSON(fiber.Map{"user_id": user.ID, "name": user.Name})
}
