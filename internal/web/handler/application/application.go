// Package application exposes the application registry endpoints.
package application

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/infodir/opa-permission-api/internal/auth"
	"github.com/infodir/opa-permission-api/internal/config"
	controller "github.com/infodir/opa-permission-api/internal/db/controller/application"
	"github.com/infodir/opa-permission-api/internal/db/models"
	"github.com/infodir/opa-permission-api/internal/web/handler"
)

// Path is the base path of the application endpoints.
const Path = handler.RootPath + "/applications"

// Syncer removes applications together with their mappings and keeps the
// engine synchronized.
type Syncer interface {
	DeleteApplication(ctx context.Context, id string) error
}

// Service is the application handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	sync      Syncer
	validator *validator.Validate
}

// Handler is the application handler.
var Handler = Service{}

type createRequest struct {
	ID          string `json:"id"   validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type updateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Init initializes the application handler and registers its routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, sync Syncer, decoder *auth.Decoder) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.sync = sync
	s.validator = validator.New()

	requireUser := auth.RequireUser(decoder)
	requireAdmin := auth.RequireAdmin(cfg.Auth.AdminADGroup)

	app.Get(Path, requireUser, s.List)
	app.Get(Path+"/:id", requireUser, s.Get)
	app.Post(Path, requireUser, requireAdmin, s.Create)
	app.Put(Path+"/:id", requireUser, requireAdmin, s.Update)
	app.Delete(Path+"/:id", requireUser, requireAdmin, s.Delete)
}

// List returns all registered applications.
func (s *Service) List(c *fiber.Ctx) error {
	apps, err := controller.GetAll(s.db)
	if err != nil {
		return handler.RespondError(c, err)
	}

	return c.JSON(apps)
}

// Get returns a single application by id.
func (s *Service) Get(c *fiber.Ctx) error {
	app, err := controller.GetByID(s.db, c.Params("id"))
	if err != nil {
		return handler.RespondError(c, err)
	}

	return c.JSON(app)
}

// Create registers a new application.
func (s *Service) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.RespondBadRequest(c, "invalid request body")
	}

	if err := s.validator.Struct(&req); err != nil {
		return handler.RespondBadRequest(c, err.Error())
	}

	app := &models.Application{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
	}

	if _, err := controller.Create(s.db, app); err != nil {
		return handler.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(app)
}

// Update applies a partial update to an application.
func (s *Service) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.RespondBadRequest(c, "invalid request body")
	}

	app, err := controller.GetByID(s.db, c.Params("id"))
	if err != nil {
		return handler.RespondError(c, err)
	}

	if req.Name != nil {
		app.Name = *req.Name
	}

	if req.Description != nil {
		app.Description = *req.Description
	}

	if _, err := controller.Update(s.db, app); err != nil {
		return handler.RespondError(c, err)
	}

	return c.JSON(app)
}

// Delete removes an application and all of its role mappings, then
// resynchronizes the engine.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.sync.DeleteApplication(c.UserContext(), c.Params("id")); err != nil {
		return handler.RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
