// Package web wires the fiber application: middlewares, handlers and the
// lifecycle of the HTTP server.
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
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/infodir/opa-permission-api/internal/auth"
	"github.com/infodir/opa-permission-api/internal/config"
	"github.com/infodir/opa-permission-api/internal/custompolicy"
	fiberlogger "github.com/infodir/opa-permission-api/internal/logger/adapter/fiber"
	"github.com/infodir/opa-permission-api/internal/opa"
	"github.com/infodir/opa-permission-api/internal/permission"
	"github.com/infodir/opa-permission-api/internal/policysync"
	"github.com/infodir/opa-permission-api/internal/storage"
	applicationhandler "github.com/infodir/opa-permission-api/internal/web/handler/application"
	healthhandler "github.com/infodir/opa-permission-api/internal/web/handler/health"
	permissionhandler "github.com/infodir/opa-permission-api/internal/web/handler/permission"
	policyhandler "github.com/infodir/opa-permission-api/internal/web/handler/policy"
	rolemappinghandler "github.com/infodir/opa-permission-api/internal/web/handler/rolemapping"
)

// PathAlive is the liveness endpoint used by load balancers during
// graceful shutdown.
const PathAlive = "/alive"

// Deps bundles the backing services of the web layer.
type Deps struct {
	DB        *gorm.DB
	Engine    *opa.Client
	Sync      *policysync.Service
	Evaluator *permission.Evaluator
	Policies  *custompolicy.Service
	Files     *storage.PolicyStore
	Decoder   *auth.Decoder
}

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
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

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: report not alive, so the LB
	// removes this pod from its active targets before the listener stops.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 on %s for %d seconds",
			PathAlive, s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		if err := s.App.Shutdown(); err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendStatus(fiber.StatusOK)
}

// New creates a new web service with the given configuration and
// dependencies.
func New(cfg *config.Config, deps Deps) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if deps.DB == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	// access log with request ids
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: PathAlive,
	}))

	service := &Service{
		cfg: cfg,
		App: app,
		db:  deps.DB,
	}
	service.alive.Store(true)

	app.Get(PathAlive, service.checkAlive)

	var files healthhandler.FileStore
	if deps.Files != nil {
		files = deps.Files
	}

	// init handlers (they register their own routes with auth checks)
	healthhandler.Handler.Init(app, deps.DB, deps.Engine, files)
	rolemappinghandler.Handler.Init(app, cfg, deps.DB, deps.Sync, deps.Decoder)
	applicationhandler.Handler.Init(app, cfg, deps.DB, deps.Sync, deps.Decoder)
	permissionhandler.Handler.Init(app, cfg, deps.DB, deps.Evaluator, deps.Decoder)
	policyhandler.Handler.Init(app, cfg, deps.DB, deps.Policies, deps.Decoder)

	return service
}
