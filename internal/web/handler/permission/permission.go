// Package permission exposes the permission evaluation endpoints.
package permission

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/infodir/opa-permission-api/internal/auth"
	"github.com/infodir/opa-permission-api/internal/config"
	applicationctl "github.com/infodir/opa-permission-api/internal/db/controller/application"
	"github.com/infodir/opa-permission-api/internal/web/handler"
)

// Path is the base path of the permission endpoints.
const Path = handler.RootPath + "/permissions"

// Evaluator resolves effective roles through the policy engine.
type Evaluator interface {
	ForUser(ctx context.Context, user *auth.UserInfo, applicationIDs []string) (map[string]string, error)
	ForApplication(ctx context.Context, user *auth.UserInfo, applicationID string) (string, error)
}

// Service is the permission handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	evaluator Evaluator
}

// Handler is the permission handler.
var Handler = Service{}

type evaluateRequest struct {
	Applications []string `json:"applications"`
}

type applicationRoleResponse struct {
	ApplicationID string `json:"application_id"`
	Role          string `json:"role"`
}

// Init initializes the permission handler and registers its routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, evaluator Evaluator, decoder *auth.Decoder) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.evaluator = evaluator

	requireUser := auth.RequireUser(decoder)

	app.Post(Path, requireUser, s.Evaluate)
	app.Get(Path+"/:application_id", requireUser, s.EvaluateApplication)
}

// Evaluate returns the caller's role for the requested applications. An
// empty application list evaluates every registered application.
func (s *Service) Evaluate(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req evaluateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return handler.RespondBadRequest(c, "invalid request body")
		}
	}

	if len(req.Applications) == 0 {
		apps, err := applicationctl.GetAll(s.db)
		if err != nil {
			return handler.RespondError(c, err)
		}

		for _, app := range apps {
			req.Applications = append(req.Applications, app.ID)
		}
	}

	roles, err := s.evaluator.ForUser(c.UserContext(), user, req.Applications)
	if err != nil {
		return handler.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"permissions": roles})
}

// EvaluateApplication returns the caller's role for a single application.
// Unknown application ids are rejected with 404.
func (s *Service) EvaluateApplication(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	appID := c.Params("application_id")

	if _, err := applicationctl.GetByID(s.db, appID); err != nil {
		return handler.RespondError(c, err)
	}

	role, err := s.evaluator.ForApplication(c.UserContext(), user, appID)
	if err != nil {
		return handler.RespondError(c, err)
	}

	return c.JSON(applicationRoleResponse{ApplicationID: appID, Role: role})
}
