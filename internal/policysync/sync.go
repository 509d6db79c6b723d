// Package policysync keeps the policy engine's data document in lockstep
// with the role mapping store. Every mutation writes to the database first
// and then pushes a full projection of all mappings; a failed push leaves
// the store updated and is surfaced to the caller.
package policysync

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/infodir/opa-permission-api/internal/db/controller/application"
	"github.com/infodir/opa-permission-api/internal/db/controller/rolemapping"
	"github.com/infodir/opa-permission-api/internal/db/models"
)

const (
	// DataPath is the engine data document holding the role mapping
	// projection.
	DataPath = "role_mappings"

	// BasePolicyID is the id of the built-in policy module.
	BasePolicyID = "permissions"
)

// Engine is the subset of the policy engine client the orchestrator needs.
type Engine interface {
	PushData(ctx context.Context, path string, data any) error
	UploadPolicy(ctx context.Context, id, content string) error
}

// MappingUpdate describes a partial role mapping update. Nil fields are
// left untouched.
type MappingUpdate struct {
	ApplicationID *string
	Environment   *string
	ADGroup       *string
	Role          *string
}

// Service orchestrates store writes and engine pushes.
type Service struct {
	db     *gorm.DB
	engine Engine
}

// New creates a Service on top of db and engine.
func New(db *gorm.DB, engine Engine) *Service {
	return &Service{db: db, engine: engine}
}

// Resync projects all role mappings and replaces the engine's data
// document with the result. It is idempotent and safe to call at any time.
func (s *Service) Resync(ctx context.Context) error {
	doc, err := rolemapping.ProjectAll(s.db)
	if err != nil {
		return err
	}

	if err := s.engine.PushData(ctx, DataPath, doc); err != nil {
		return err
	}

	log.Debug().Int("applications", len(doc)).Msg("role mappings synchronized to policy engine")

	return nil
}

// UploadBasePolicy installs the built-in permissions module on the engine.
func (s *Service) UploadBasePolicy(ctx context.Context) error {
	return s.engine.UploadPolicy(ctx, BasePolicyID, basePolicy)
}

// CreateMapping stores a new role mapping and resynchronizes the engine.
// The mapping stays stored even when the push fails.
func (s *Service) CreateMapping(ctx context.Context, mapping *models.RoleMapping) error {
	if _, err := rolemapping.Create(s.db, mapping); err != nil {
		return err
	}

	return s.Resync(ctx)
}

// UpdateMapping applies a partial update to an existing mapping and
// resynchronizes the engine.
func (s *Service) UpdateMapping(ctx context.Context, id uint64, update MappingUpdate) (*models.RoleMapping, error) {
	mapping, err := rolemapping.GetByID(s.db, id)
	if err != nil {
		return nil, err
	}

	if update.ApplicationID != nil {
		mapping.ApplicationID = *update.ApplicationID
	}

	if update.Environment != nil {
		mapping.Environment = *update.Environment
	}

	if update.ADGroup != nil {
		mapping.ADGroup = *update.ADGroup
	}

	if update.Role != nil {
		mapping.Role = *update.Role
	}

	if _, err := rolemapping.Update(s.db, mapping); err != nil {
		return nil, err
	}

	if err := s.Resync(ctx); err != nil {
		return nil, err
	}

	return mapping, nil
}

// DeleteMapping removes a mapping and resynchronizes the engine. A missing
// id returns rolemapping.ErrMappingNotFound without touching the engine.
func (s *Service) DeleteMapping(ctx context.Context, id uint64) error {
	deleted, err := rolemapping.Delete(s.db, id)
	if err != nil {
		return err
	}

	if !deleted {
		return rolemapping.ErrMappingNotFound
	}

	return s.Resync(ctx)
}

// DeleteApplication removes an application together with all of its role
// mappings and resynchronizes the engine.
func (s *Service) DeleteApplication(ctx context.Context, id string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", id).Delete(&models.RoleMapping{}).Error; err != nil {
			return err
		}

		deleted, err := application.Delete(tx, id)
		if err != nil {
			return err
		}

		if !deleted {
			return application.ErrApplicationNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	return s.Resync(ctx)
}

// EnsureSynchronized performs the startup push. Failures are logged and
// swallowed so the service can come up degraded while the engine recovers.
func (s *Service) EnsureSynchronized(ctx context.Context) {
	started := time.Now()

	if err := s.Resync(ctx); err != nil {
		log.Warn().Err(err).Msg("initial role mapping sync failed, store and engine may diverge")

		return
	}

	log.Info().Dur("duration", time.Since(started)).Msg("initial role mapping sync completed")
}
