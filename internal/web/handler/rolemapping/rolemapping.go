// Package rolemapping exposes the role mapping CRUD endpoints. Reads are
// open to every authenticated user, mutations require the admin group and
// trigger a full engine resync.
package rolemapping

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/infodir/opa-permission-api/internal/auth"
	"github.com/infodir/opa-permission-api/internal/config"
	controller "github.com/infodir/opa-permission-api/internal/db/controller/rolemapping"
	"github.com/infodir/opa-permission-api/internal/db/models"
	"github.com/infodir/opa-permission-api/internal/policysync"
	"github.com/infodir/opa-permission-api/internal/web/handler"
)

// Path is the base path of the role mapping endpoints.
const Path = handler.RootPath + "/role-mappings"

// Syncer mutates the mapping store and keeps the engine synchronized.
type Syncer interface {
	CreateMapping(ctx context.Context, mapping *models.RoleMapping) error
	UpdateMapping(ctx context.Context, id uint64, update policysync.MappingUpdate) (*models.RoleMapping, error)
	DeleteMapping(ctx context.Context, id uint64) error
}

// Service is the role mapping handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	sync      Syncer
	validator *validator.Validate
}

// Handler is the role mapping handler.
var Handler = Service{}

type createRequest struct {
	ApplicationID string `json:"application_id" validate:"required"`
	Environment   string `json:"environment"    validate:"required"`
	ADGroup       string `json:"ad_group"       validate:"required"`
	Role          string `json:"role"           validate:"required"`
}

type updateRequest struct {
	ApplicationID *string `json:"application_id"`
	Environment   *string `json:"environment"`
	ADGroup       *string `json:"ad_group"`
	Role          *string `json:"role"`
}

// Init initializes the role mapping handler and registers its routes.
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

// List returns all role mappings, optionally filtered by application id.
func (s *Service) List(c *fiber.Ctx) error {
	mappings, err := controller.GetAll(s.db, c.Query("application_id"))
	if err != nil {
		return handler.RespondError(c, err)
	}

	return c.JSON(mappings)
}

// Get returns a single role mapping by id.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := mappingID(c)
	if err != nil {
		return handler.RespondBadRequest(c, "id must be a positive integer")
	}

	mapping, err := controller.GetByID(s.db, id)
	if err != nil {
		return handler.RespondError(c, err)
	}

	return c.JSON(mapping)
}

// Create stores a new role mapping and resynchronizes the engine.
func (s *Service) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.RespondBadRequest(c, "invalid request body")
	}

	if err := s.validator.Struct(&req); err != nil {
		return handler.RespondBadRequest(c, err.Error())
	}

	mapping := &models.RoleMapping{
		ApplicationID: req.ApplicationID,
		Environment:   req.Environment,
		ADGroup:       req.ADGroup,
		Role:          req.Role,
	}

	if err := s.sync.CreateMapping(c.UserContext(), mapping); err != nil {
		return handler.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(mapping)
}

// Update applies a partial update and resynchronizes the engine.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := mappingID(c)
	if err != nil {
		return handler.RespondBadRequest(c, "id must be a positive integer")
	}

	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.RespondBadRequest(c, "invalid request body")
	}

	mapping, err := s.sync.UpdateMapping(c.UserContext(), id, policysync.MappingUpdate{
		ApplicationID: req.ApplicationID,
		Environment:   req.Environment,
		ADGroup:       req.ADGroup,
		Role:          req.Role,
	})
	if err != nil {
		return handler.RespondError(c, err)
	}

	return c.JSON(mapping)
}

// Delete removes a role mapping and resynchronizes the engine.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := mappingID(c)
	if err != nil {
		return handler.RespondBadRequest(c, "id must be a positive integer")
	}

	if err := s.sync.DeleteMapping(c.UserContext(), id); err != nil {
		return handler.RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func mappingID(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}
