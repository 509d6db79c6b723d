// Package custompolicy provides CRUD operations for custom policy metadata.
package custompolicy

import (
	"errors"

	"gorm.io/gorm"

	"github.com/infodir/opa-permission-api/internal/db/models"
)

var (
	// ErrPolicyNotFound is returned when a custom policy is not found.
	ErrPolicyNotFound = errors.New("custom policy not found")
	// ErrPolicyAlreadyExists is returned when attempting to create a policy
	// with an id that is already taken.
	ErrPolicyAlreadyExists = errors.New("custom policy already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Create stores the metadata row of an uploaded custom policy.
func Create(db *gorm.DB, policy *models.CustomPolicy) (*models.CustomPolicy, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var existing models.CustomPolicy
	result := db.First(&existing, "id = ?", policy.ID)
	if result.Error == nil {
		return nil, ErrPolicyAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	result = db.Create(policy)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrPolicyAlreadyExists
		}

		return nil, result.Error
	}

	return policy, nil
}

// GetByID retrieves a custom policy by its id.
func GetByID(db *gorm.DB, id string) (*models.CustomPolicy, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var policy models.CustomPolicy
	result := db.First(&policy, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotFound
		}

		return nil, result.Error
	}

	return &policy, nil
}

// GetAll retrieves all custom policies from the database.
func GetAll(db *gorm.DB) ([]models.CustomPolicy, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var policies []models.CustomPolicy
	result := db.Find(&policies)
	if result.Error != nil {
		return nil, result.Error
	}

	return policies, nil
}

// Delete removes a custom policy metadata row by id. The boolean reports
// whether a row existed and was removed.
func Delete(db *gorm.DB, id string) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	result := db.Delete(&models.CustomPolicy{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
