package custompolicy

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

	require.NoError(t, db.AutoMigrate(&models.CustomPolicy{}))

	return db
}

func testPolicy() *models.CustomPolicy {
	return &models.CustomPolicy{
		ID:        "custom-1",
		Name:      "custom policy",
		S3Key:     "policies/custom-1/v20260831120000.rego",
		Version:   "v20260831120000",
		CreatorID: "e-1001",
	}
}

func TestCreate(t *testing.T) {
	db := newTestDB(t)

	policy, err := Create(db, testPolicy())
	require.NoError(t, err)
	assert.NotZero(t, policy.CreatedAt)

	_, err = Create(db, testPolicy())
	assert.ErrorIs(t, err, ErrPolicyAlreadyExists)

	_, err = Create(nil, testPolicy())
	assert.ErrorIs(t, err, ErrDBNil)
}

func TestGetByID(t *testing.T) {
	db := newTestDB(t)

	_, err := Create(db, testPolicy())
	require.NoError(t, err)

	policy, err := GetByID(db, "custom-1")
	require.NoError(t, err)
	assert.Equal(t, "v20260831120000", policy.Version)
	assert.Equal(t, "e-1001", policy.CreatorID)

	_, err = GetByID(db, "custom-2")
	assert.ErrorIs(t, err, ErrPolicyNotFound)
}

func TestGetAll(t *testing.T) {
	db := newTestDB(t)

	all, err := GetAll(db)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = Create(db, testPolicy())
	require.NoError(t, err)

	second := testPolicy()
	second.ID = "custom-2"
	_, err = Create(db, second)
	require.NoError(t, err)

	all, err = GetAll(db)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)

	_, err := Create(db, testPolicy())
	require.NoError(t, err)

	deleted, err := Delete(db, "custom-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = Delete(db, "custom-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}
