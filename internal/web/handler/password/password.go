// Package password completes the password setup link flow.
package password

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tenantadmin/tenantadmin/internal/db/models"
	"github.com/tenantadmin/tenantadmin/internal/guard"
	"github.com/tenantadmin/tenantadmin/internal/notify"
	"github.com/tenantadmin/tenantadmin/internal/web/handler"
)

// Path of the setup endpoint, the links sent to users point here.
const Path = notify.SetupPath

// Request sets a password with a setup token.
type Request struct {
	Token    string `json:"token"    form:"token"    validate:"required"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=128"`
}

// Service is the password setup handler service.
type Service struct {
	handler.Service
	deps      *handler.Deps
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes. The endpoint is public, the token is the credential.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps
	s.validator = validator.New()

	app.Post(Path, s.Setup)

	return nil
}

// Setup consumes the token and stores the password. The token is spent only when the
// password is stored.
func (s *Service) Setup(c *fiber.Ctx) error {
	req := new(Request)
	if err := handler.Parse(c, req); err != nil {
		return handler.Error(c, err)
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.Error(c, guard.ValidationErrorOf(err))
	}

	var userID string

	err := s.deps.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var err error

		userID, err = s.deps.Tokens.ConsumeTx(c.UserContext(), tx, req.Token)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if err = s.deps.Provider.SetPassword(c.UserContext(), tx, userID, req.Password); err != nil {
			return err //nolint:wrapcheck
		}

		return tx.Model(&models.User{}).Where("id = ?", userID).Update("email_verified", true).Error
	})
	if err != nil {
		return handler.Error(c, err)
	}

	s.deps.Gate.Service().Invalidate(userID)
	log.Info().Str("user_id", userID).Msg("password set through setup link")

	return c.SendStatus(fiber.StatusNoContent)
}
