// Package application provides CRUD operations for managing applications.
package application

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/infodir/opa-permission-api/internal/db/models"
)

var (
	// ErrApplicationNotFound is returned when an application is not found.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrApplicationAlreadyExists is returned when attempting to create an application
	// with an id that is already taken.
	ErrApplicationAlreadyExists = errors.New("application already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Create creates a new application in the database.
func Create(db *gorm.DB, app *models.Application) (*models.Application, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	// Check if the application id is already taken
	var existing models.Application
	result := db.First(&existing, "id = ?", app.ID)
	if result.Error == nil {
		return nil, ErrApplicationAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	result = db.Create(app)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrApplicationAlreadyExists
		}

		return nil, result.Error
	}

	return app, nil
}

// GetByID retrieves an application by its id.
func GetByID(db *gorm.DB, id string) (*models.Application, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var app models.Application
	result := db.First(&app, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}

		return nil, result.Error
	}

	return &app, nil
}

// GetAll retrieves all applications from the database.
func GetAll(db *gorm.DB) ([]models.Application, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var apps []models.Application
	result := db.Find(&apps)
	if result.Error != nil {
		return nil, result.Error
	}

	return apps, nil
}

// Update persists an already-loaded and mutated application.
func Update(db *gorm.DB, app *models.Application) (*models.Application, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	now := time.Now().UTC()
	app.UpdatedAt = &now

	result := db.Save(app)
	if result.Error != nil {
		return nil, result.Error
	}

	return app, nil
}

// Delete removes an application by id. Role mappings referencing the
// application are removed by the foreign key cascade. The boolean reports
// whether a row existed and was removed.
func Delete(db *gorm.DB, id string) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	result := db.Delete(&models.Application{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
