// Package models contains database model definitions.
package models

import "time"

// Application represents a registered application that permissions can be
// evaluated against. Applications are the unit the policy engine reports a
// role for: the permission endpoint asks OPA for the caller's role per
// application id.
type Application struct {
	// ID is the caller-chosen unique identifier for the application (e.g. "app-a").
	ID string `gorm:"primaryKey;size:255" json:"id"`
	// Name is the human readable application name.
	Name string `gorm:"size:255;not null" json:"name"`
	// Description provides an optional human-readable description.
	Description string `gorm:"size:255" json:"description,omitempty"`
	// CreatedAt is the timestamp when the application was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp of the last update, nil until the first update.
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// TableName specifies the database table name for the Application model.
// This overrides GORM's default pluralized table naming.
func (Application) TableName() string {
	return "applications"
}
