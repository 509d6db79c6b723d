// Package health exposes the unauthenticated readiness endpoint used by
// load balancers and deployment probes.
package health

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Path is the path of the health endpoint.
const Path = "/health"

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

// Engine probes the policy engine.
type Engine interface {
	HealthCheck(ctx context.Context) (bool, error)
}

// FileStore probes the policy file store.
type FileStore interface {
	HealthCheck(ctx context.Context) error
}

// Service is the health handler service.
type Service struct {
	db     *gorm.DB
	engine Engine
	files  FileStore
}

// Handler is the health handler.
var Handler = Service{}

// Init initializes the health handler and registers its route.
func (s *Service) Init(app *fiber.App, db *gorm.DB, engine Engine, files FileStore) {
	if app == nil || db == nil {
		log.Fatal().Msg("app or db is nil")
		return
	}

	s.db = db
	s.engine = engine
	s.files = files

	app.Get(Path, s.Get)
}

// Get reports the state of every backing component. Any failing component
// degrades the overall status to 503.
func (s *Service) Get(c *fiber.Ctx) error {
	ctx := c.UserContext()
	components := fiber.Map{}
	healthy := true

	components["database"] = statusOK

	if sqlDB, err := s.db.DB(); err != nil {
		components["database"] = err.Error()
		healthy = false
	} else if err := sqlDB.PingContext(ctx); err != nil {
		components["database"] = err.Error()
		healthy = false
	}

	components["policy_engine"] = statusOK

	if ok, err := s.engine.HealthCheck(ctx); err != nil {
		components["policy_engine"] = err.Error()
		healthy = false
	} else if !ok {
		components["policy_engine"] = statusDegraded
		healthy = false
	}

	if s.files != nil {
		components["object_storage"] = statusOK

		if err := s.files.HealthCheck(ctx); err != nil {
			components["object_storage"] = err.Error()
			healthy = false
		}
	}

	status := statusOK
	code := fiber.StatusOK

	if !healthy {
		status = statusDegraded
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":     status,
		"components": components,
	})
}
