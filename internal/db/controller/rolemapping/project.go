package rolemapping

import (
	"gorm.io/gorm"

	"github.com/infodir/opa-permission-api/internal/db/models"
)

// Document is the nested policy document the engine consumes:
// application id -> environment -> AD group -> role. It is rebuilt from
// scratch out of the full role mapping table on every synchronization, so
// the pushed document can never accumulate drift from stale partial
// updates.
type Document map[string]map[string]map[string]string

// Project reshapes a flat list of role mappings into the nested Document.
// The store's uniqueness constraint guarantees at most one role per
// (application, environment, group); should that invariant ever be
// violated, the later mapping in the slice wins.
func Project(mappings []models.RoleMapping) Document {
	doc := Document{}

	for _, m := range mappings {
		envs, ok := doc[m.ApplicationID]
		if !ok {
			envs = map[string]map[string]string{}
			doc[m.ApplicationID] = envs
		}

		groups, ok := envs[m.Environment]
		if !ok {
			groups = map[string]string{}
			envs[m.Environment] = groups
		}

		groups[m.ADGroup] = m.Role
	}

	return doc
}

// ProjectAll reads the entire role mapping table and returns it projected
// as a Document. The read runs inside a transaction so the projection
// reflects a single consistent snapshot even when writers are active.
func ProjectAll(db *gorm.DB) (Document, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var mappings []models.RoleMapping

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Find(&mappings).Error
	})
	if err != nil {
		return nil, err
	}

	return Project(mappings), nil
}
