// Package custompolicy manages user supplied Rego policy modules: it
// validates them against the engine, archives the source in the policy
// file store, records metadata in the database and installs the module on
// the engine.
package custompolicy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	controller "github.com/infodir/opa-permission-api/internal/db/controller/custompolicy"
	"github.com/infodir/opa-permission-api/internal/db/models"
	"github.com/infodir/opa-permission-api/internal/opa"
	"github.com/infodir/opa-permission-api/internal/storage"
)

// ErrInvalidPolicy means the engine rejected the submitted Rego source.
var ErrInvalidPolicy = errors.New("policy failed validation")

// ErrNoFileStore means no policy file bucket is configured.
var ErrNoFileStore = errors.New("no policy file store configured")

// Engine is the subset of the policy engine client the service needs.
type Engine interface {
	UploadPolicy(ctx context.Context, id, content string) error
	DeletePolicy(ctx context.Context, id string) error
	Evaluate(ctx context.Context, path string, input any) (json.RawMessage, error)
}

// FileStore archives policy sources.
type FileStore interface {
	UploadPolicyFile(ctx context.Context, policyID, version, content string) (string, error)
	FetchPolicyFile(ctx context.Context, key string) (string, error)
}

// UploadRequest carries a new policy submission.
type UploadRequest struct {
	ID          string
	Name        string
	Description string
	Content     string
	CreatorID   string
}

// Service implements the custom policy lifecycle.
type Service struct {
	db     *gorm.DB
	engine Engine
	files  FileStore
}

// New creates a Service on top of db, engine and files.
func New(db *gorm.DB, engine Engine, files FileStore) *Service {
	return &Service{db: db, engine: engine, files: files}
}

// ValidateRego checks the policy source by uploading it to the engine
// under a throwaway id. The temporary module is removed again on success.
func (s *Service) ValidateRego(ctx context.Context, content string) error {
	tempID := fmt.Sprintf("temp_validation_%d", time.Now().Unix())

	if err := s.engine.UploadPolicy(ctx, tempID, content); err != nil {
		var syncErr *opa.SyncError
		if errors.As(err, &syncErr) && syncErr.Status == 400 {
			return pkgerrors.Wrap(ErrInvalidPolicy, syncErr.Detail)
		}

		return err
	}

	if err := s.engine.DeletePolicy(ctx, tempID); err != nil {
		log.Warn().Err(err).Str("policy_id", tempID).Msg("could not remove temporary validation module")
	}

	return nil
}

// Upload validates, archives and installs a new policy. The database row
// and the archived file survive an engine install failure, which is only
// logged; the module can be re-installed by a later upload.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.CustomPolicy, error) {
	if s.files == nil {
		return nil, ErrNoFileStore
	}

	if err := s.ValidateRego(ctx, req.Content); err != nil {
		return nil, err
	}

	version := storage.NewVersion()

	key, err := s.files.UploadPolicyFile(ctx, req.ID, version, req.Content)
	if err != nil {
		return nil, err
	}

	policy := &models.CustomPolicy{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		S3Key:       key,
		Version:     version,
		CreatorID:   req.CreatorID,
	}

	if _, err := controller.Create(s.db, policy); err != nil {
		return nil, err
	}

	if err := s.engine.UploadPolicy(ctx, req.ID, req.Content); err != nil {
		log.Warn().Err(err).Str("policy_id", req.ID).Msg("policy archived but engine install failed")
	}

	return policy, nil
}

// Get returns the metadata of a single policy.
func (s *Service) Get(id string) (*models.CustomPolicy, error) {
	return controller.GetByID(s.db, id)
}

// List returns the metadata of all policies.
func (s *Service) List() ([]models.CustomPolicy, error) {
	return controller.GetAll(s.db)
}

// Source returns the archived Rego source of a policy.
func (s *Service) Source(ctx context.Context, id string) (string, error) {
	if s.files == nil {
		return "", ErrNoFileStore
	}

	policy, err := controller.GetByID(s.db, id)
	if err != nil {
		return "", err
	}

	return s.files.FetchPolicyFile(ctx, policy.S3Key)
}

// Evaluate queries the installed policy module with the given input.
func (s *Service) Evaluate(ctx context.Context, id string, input any) (json.RawMessage, error) {
	if _, err := controller.GetByID(s.db, id); err != nil {
		return nil, err
	}

	return s.engine.Evaluate(ctx, id, input)
}

// Delete uninstalls the module from the engine and removes the metadata
// row. The archived source files stay in the file store.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := controller.GetByID(s.db, id); err != nil {
		return err
	}

	if err := s.engine.DeletePolicy(ctx, id); err != nil {
		log.Warn().Err(err).Str("policy_id", id).Msg("could not uninstall policy module from engine")
	}

	deleted, err := controller.Delete(s.db, id)
	if err != nil {
		return err
	}

	if !deleted {
		return controller.ErrPolicyNotFound
	}

	return nil
}
