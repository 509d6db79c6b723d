package models

import "time"

// CustomPolicy holds the metadata of an uploaded Rego policy module. The
// policy source itself lives in object storage under S3Key; the module is
// additionally installed in the policy engine under ID so it can be
// evaluated directly.
type CustomPolicy struct {
	// ID is the caller-chosen unique identifier, also used as the OPA module id.
	ID string `gorm:"primaryKey;size:255" json:"id"`
	// Name is the human readable policy name.
	Name string `gorm:"size:255;not null" json:"name"`
	// Description provides an optional human-readable description.
	Description string `gorm:"size:255" json:"description,omitempty"`
	// S3Key is the object storage key of the stored policy source.
	S3Key string `gorm:"size:512;not null" json:"s3_key"`
	// Version is the version identifier assigned at upload time.
	Version string `gorm:"size:100;not null" json:"version"`
	// CreatorID is the employee id of the user who uploaded the policy.
	CreatorID string `gorm:"size:255;not null" json:"creator_id"`
	// CreatedAt is the timestamp when the policy was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp of the last update, nil until the first update.
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// TableName specifies the database table name for the CustomPolicy model.
// This overrides GORM's default pluralized table naming.
func (CustomPolicy) TableName() string {
	return "custom_policies"
}
