package application

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/infodir/opa-permission-api/internal/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Application{}))

	return db
}

func TestCreate(t *testing.T) {
	db := newTestDB(t)

	app, err := Create(db, &models.Application{ID: "app-a", Name: "App A", Description: "first"})
	require.NoError(t, err)
	assert.NotZero(t, app.CreatedAt)
	assert.Nil(t, app.UpdatedAt)

	_, err = Create(db, &models.Application{ID: "app-a", Name: "duplicate"})
	assert.ErrorIs(t, err, ErrApplicationAlreadyExists)

	_, err = Create(nil, &models.Application{ID: "app-b"})
	assert.ErrorIs(t, err, ErrDBNil)
}

func TestGetByID(t *testing.T) {
	db := newTestDB(t)

	_, err := Create(db, &models.Application{ID: "app-a", Name: "App A"})
	require.NoError(t, err)

	app, err := GetByID(db, "app-a")
	require.NoError(t, err)
	assert.Equal(t, "App A", app.Name)

	_, err = GetByID(db, "app-b")
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestGetAll(t *testing.T) {
	db := newTestDB(t)

	all, err := GetAll(db)
	require.NoError(t, err)
	assert.Empty(t, all)

	for _, id := range []string{"app-a", "app-b"} {
		_, err = Create(db, &models.Application{ID: id, Name: id})
		require.NoError(t, err)
	}

	all, err = GetAll(db)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdate(t *testing.T) {
	db := newTestDB(t)

	app, err := Create(db, &models.Application{ID: "app-a", Name: "App A"})
	require.NoError(t, err)

	app.Name = "App A renamed"

	updated, err := Update(db, app)
	require.NoError(t, err)
	assert.Equal(t, "App A renamed", updated.Name)
	require.NotNil(t, updated.UpdatedAt)

	stored, err := GetByID(db, "app-a")
	require.NoError(t, err)
	assert.Equal(t, "App A renamed", stored.Name)
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)

	_, err := Create(db, &models.Application{ID: "app-a", Name: "App A"})
	require.NoError(t, err)

	deleted, err := Delete(db, "app-a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = Delete(db, "app-a")
	require.NoError(t, err)
	assert.False(t, deleted)
}
