// Package rolemapping provides CRUD operations and the policy document
// projection for role mappings.
package rolemapping

import (
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/infodir/opa-permission-api/internal/db/models"
)

var (
	// ErrMappingNotFound is returned when a role mapping is not found.
	ErrMappingNotFound = errors.New("role mapping not found")
	// ErrMappingConflict is returned when a mapping for the same
	// application, environment and AD group already exists.
	ErrMappingConflict = errors.New("role mapping already exists for this application, environment and AD group")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Create inserts a new role mapping. The store enforces the uniqueness of
// the (application, environment, AD group) triple; a duplicate fails with
// ErrMappingConflict and leaves the store unchanged.
//
// Requires the gorm connection to be opened with TranslateError so driver
// duplicate key errors surface as gorm.ErrDuplicatedKey.
func Create(db *gorm.DB, mapping *models.RoleMapping) (*models.RoleMapping, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	result := db.Create(mapping)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.Wrapf(ErrMappingConflict,
				"application %q environment %q group %q", mapping.ApplicationID, mapping.Environment, mapping.ADGroup)
		}

		return nil, result.Error
	}

	return mapping, nil
}

// GetByID retrieves a role mapping by its id.
func GetByID(db *gorm.DB, id uint64) (*models.RoleMapping, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var mapping models.RoleMapping
	result := db.First(&mapping, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMappingNotFound
		}

		return nil, result.Error
	}

	return &mapping, nil
}

// GetAll retrieves all role mappings, optionally filtered by application id.
func GetAll(db *gorm.DB, applicationID string) ([]models.RoleMapping, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	query := db.Model(&models.RoleMapping{})
	if applicationID != "" {
		query = query.Where("application_id = ?", applicationID)
	}

	var mappings []models.RoleMapping
	result := query.Find(&mappings)
	if result.Error != nil {
		return nil, result.Error
	}

	return mappings, nil
}

// Update persists an already-loaded and mutated role mapping. A mutation
// that makes the triple collide with a different existing row fails with
// ErrMappingConflict.
func Update(db *gorm.DB, mapping *models.RoleMapping) (*models.RoleMapping, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	now := time.Now().UTC()
	mapping.UpdatedAt = &now

	result := db.Save(mapping)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.Wrapf(ErrMappingConflict,
				"application %q environment %q group %q", mapping.ApplicationID, mapping.Environment, mapping.ADGroup)
		}

		return nil, result.Error
	}

	return mapping, nil
}

// Delete removes a role mapping by id. The boolean reports whether a row
// existed and was removed; a missing id is not an error.
func Delete(db *gorm.DB, id uint64) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	result := db.Delete(&models.RoleMapping{}, id)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
