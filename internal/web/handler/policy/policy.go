// Package policy exposes the custom policy lifecycle endpoints.
package policy

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/infodir/opa-permission-api/internal/auth"
	"github.com/infodir/opa-permission-api/internal/config"
	"github.com/infodir/opa-permission-api/internal/custompolicy"
	"github.com/infodir/opa-permission-api/internal/db/models"
	"github.com/infodir/opa-permission-api/internal/web/handler"
)

// Path is the base path of the custom policy endpoints.
const Path = handler.RootPath + "/policies"

// Policies implements the custom policy lifecycle.
type Policies interface {
	Upload(ctx context.Context, req custompolicy.UploadRequest) (*models.CustomPolicy, error)
	Get(id string) (*models.CustomPolicy, error)
	List() ([]models.CustomPolicy, error)
	Source(ctx context.Context, id string) (string, error)
	Evaluate(ctx context.Context, id string, input any) (json.RawMessage, error)
	Delete(ctx context.Context, id string) error
}

// Service is the custom policy handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	policies  Policies
	validator *validator.Validate
}

// Handler is the custom policy handler.
var Handler = Service{}

type uploadRequest struct {
	ID          string `json:"id"      validate:"required"`
	Name        string `json:"name"    validate:"required"`
	Description string `json:"description"`
	Content     string `json:"content" validate:"required"`
}

type evaluateRequest struct {
	Input json.RawMessage `json:"input"`
}

// Init initializes the custom policy handler and registers its routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, policies Policies, decoder *auth.Decoder) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.policies = policies
	s.validator = validator.New()

	requireUser := auth.RequireUser(decoder)
	requireAdmin := auth.RequireAdmin(cfg.Auth.AdminADGroup)

	app.Get(Path, requireUser, s.List)
	app.Get(Path+"/:id", requireUser, s.Get)
	app.Get(Path+"/:id/source", requireUser, s.Source)
	app.Post(Path, requireUser, requireAdmin, s.Upload)
	app.Post(Path+"/:id/evaluate", requireUser, s.Evaluate)
	app.Delete(Path+"/:id", requireUser, requireAdmin, s.Delete)
}

// List returns the metadata of all custom policies.
func (s *Service) List(c *fiber.Ctx) error {
	policies, err := s.policies.List()
	if err != nil {
		return handler.RespondError(c, err)
	}

	return c.JSON(policies)
}

// Get returns the metadata of a single custom policy.
func (s *Service) Get(c *fiber.Ctx) error {
	policy, err := s.policies.Get(c.Params("id"))
	if err != nil {
		return handler.RespondError(c, err)
	}

	return c.JSON(policy)
}

// Source returns the archived Rego source of a custom policy.
func (s *Service) Source(c *fiber.Ctx) error {
	source, err := s.policies.Source(c.UserContext(), c.Params("id"))
	if err != nil {
		return handler.RespondError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)

	return c.SendString(source)
}

// Upload validates and installs a new custom policy.
func (s *Service) Upload(c *fiber.Ctx) error {
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.RespondBadRequest(c, "invalid request body")
	}

	if err := s.validator.Struct(&req); err != nil {
		return handler.RespondBadRequest(c, err.Error())
	}

	user, _ := auth.UserFromContext(c)

	var creatorID string
	if user != nil {
		creatorID = user.EmployeeID
	}

	policy, err := s.policies.Upload(c.UserContext(), custompolicy.UploadRequest{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		CreatorID:   creatorID,
	})
	if err != nil {
		return handler.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(policy)
}

// Evaluate queries an installed custom policy with the request input.
func (s *Service) Evaluate(c *fiber.Ctx) error {
	var req evaluateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return handler.RespondBadRequest(c, "invalid request body")
		}
	}

	result, err := s.policies.Evaluate(c.UserContext(), c.Params("id"), req.Input)
	if err != nil {
		return handler.RespondError(c, err)
	}

	if len(result) == 0 {
		result = json.RawMessage(`null`)
	}

	return c.JSON(fiber.Map{"result": result})
}

// Delete uninstalls a custom policy.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.policies.Delete(c.UserContext(), c.Params("id")); err != nil {
		return handler.RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
