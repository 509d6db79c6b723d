// Package daemon assembles the service: database, policy engine client,
// file store, services and the web layer.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/infodir/opa-permission-api/internal/auth"
	"github.com/infodir/opa-permission-api/internal/config"
	"github.com/infodir/opa-permission-api/internal/custompolicy"
	"github.com/infodir/opa-permission-api/internal/db/dsn"
	"github.com/infodir/opa-permission-api/internal/db/models"
	"github.com/infodir/opa-permission-api/internal/logger"
	"github.com/infodir/opa-permission-api/internal/opa"
	"github.com/infodir/opa-permission-api/internal/permission"
	"github.com/infodir/opa-permission-api/internal/policysync"
	"github.com/infodir/opa-permission-api/internal/storage"
	"github.com/infodir/opa-permission-api/internal/web"
)

const startupTimeout = 30 * time.Second

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
	engine     *opa.Client
	sync       *policysync.Service
}

// Start pushes the engine state and starts the Daemon's web service.
func (d *Daemon) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	d.startup(ctx)
	cancel()

	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// startup installs the base policy module and pushes the current role
// mapping state. An unavailable engine only degrades the start, the next
// successful mutation resynchronizes everything.
func (d *Daemon) startup(ctx context.Context) {
	healthy, err := d.engine.HealthCheck(ctx)

	switch {
	case err != nil:
		log.Warn().Err(err).Msg("policy engine unreachable, starting degraded")
	case !healthy:
		log.Warn().Msg("policy engine reports unhealthy, starting degraded")
	default:
		if err := d.sync.UploadBasePolicy(ctx); err != nil {
			log.Warn().Err(err).Msg("could not install base policy module")
		}

		d.sync.EnsureSynchronized(ctx)
	}
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	if err := logger.Init(cfg.Log); err != nil {
		panic(err)
	}

	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case "postgres":
		dialector = gormpostgres.Open(dsn.CreatePostgres(cfg))
	default:
		dialector = gormmysql.Open(dsn.Create(cfg))
	}

	// TranslateError turns driver specific duplicate key errors into
	// gorm.ErrDuplicatedKey, which the controllers rely on.
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.Application{},
		&models.RoleMapping{},
		&models.CustomPolicy{},
	); err != nil {
		panic("failed to migrate database")
	}

	engine := opa.New(cfg.OPA)
	syncService := policysync.New(db, engine)
	decoder := auth.NewDecoder(cfg.Auth)

	var (
		files     *storage.PolicyStore
		fileStore custompolicy.FileStore
	)

	if cfg.S3.Bucket != "" {
		files, err = storage.New(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("could not initialize policy file store")
			return nil
		}

		fileStore = files
	} else {
		log.Warn().Msg("no policy file bucket configured, custom policy uploads are disabled")
	}

	webService := web.New(cfg, web.Deps{
		DB:        db,
		Engine:    engine,
		Sync:      syncService,
		Evaluator: permission.New(engine),
		Policies:  custompolicy.New(db, engine, fileStore),
		Files:     files,
		Decoder:   decoder,
	})

	return &Daemon{
		cfg:        cfg,
		webService: webService,
		engine:     engine,
		sync:       syncService,
	}
}
