package models

import "time"

// RoleMapping maps an Active Directory group to a role for one application
// and environment. The triple (application, environment, AD group) is
// globally unique: a group resolves to exactly one role per application and
// environment. All rows together form the source of truth that gets
// projected and pushed to the policy engine after every mutation.
type RoleMapping struct {
	// ID is the unique identifier for the role mapping.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// ApplicationID references the application this mapping belongs to.
	// When the application is deleted, its mappings are removed (CASCADE).
	ApplicationID string `gorm:"size:255;not null;uniqueIndex:uq_app_env_adgroup;index" json:"application_id"`
	// Environment is the deployment environment the mapping applies to (e.g. "DEV", "PROD").
	// Compared case-sensitively.
	Environment string `gorm:"size:100;not null;uniqueIndex:uq_app_env_adgroup;index" json:"environment"`
	// ADGroup is the Active Directory group name being mapped.
	ADGroup string `gorm:"column:ad_group;size:255;not null;uniqueIndex:uq_app_env_adgroup;index" json:"ad_group"`
	// Role is the role granted to members of the group (e.g. "admin", "user").
	Role string `gorm:"size:100;not null" json:"role"`
	// Application is the associated application (loaded via foreign key).
	Application *Application `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"-"`
	// CreatedAt is the timestamp when the mapping was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp of the last update, nil until the first update.
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// TableName specifies the database table name for the RoleMapping model.
// This overrides GORM's default pluralized table naming.
func (RoleMapping) TableName() string {
	return "role_mappings"
}
