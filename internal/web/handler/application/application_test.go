package application

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/infodir/opa-permission-api/internal/auth"
	"github.com/infodir/opa-permission-api/internal/config"
	"github.com/infodir/opa-permission-api/internal/db/controller/rolemapping"
	"github.com/infodir/opa-permission-api/internal/db/models"
	"github.com/infodir/opa-permission-api/internal/policysync"
)

const testSecret = "unit-test-secret"

type fakeEngine struct {
	pushCount int
}

func (f *fakeEngine) PushData(context.Context, string, any) error {
	f.pushCount++

	return nil
}

func (f *fakeEngine) UploadPolicy(context.Context, string, string) error {
	return nil
}

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, *fakeEngine) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Application{}, &models.RoleMapping{}))

	cfg := &config.Config{
		Auth: config.Auth{
			JWTSecret:       testSecret,
			JWTAlgorithm:    "HS256",
			VerifySignature: true,
			AdminADGroup:    "infodir-admin",
		},
	}

	engine := &fakeEngine{}

	app := fiber.New()

	svc := &Service{}
	svc.Init(app, cfg, db, policysync.New(db, engine), auth.NewDecoder(cfg.Auth))

	return app, db, engine
}

func request(t *testing.T, app *fiber.App, method, path string, admin bool, body any) *http.Response {
	t.Helper()

	groups := []any{"grp-user"}
	if admin {
		groups = append(groups, "infodir-admin")
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"employee_id": "e-1001",
		"ad_groups":   groups,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	var reader *bytes.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestCreateEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := request(t, app, http.MethodPost, Path, true, fiber.Map{
		"id":          "app-a",
		"name":        "App A",
		"description": "first application",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Application
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "app-a", created.ID)

	// duplicate id
	resp = request(t, app, http.MethodPost, Path, true, fiber.Map{"id": "app-a", "name": "again"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// missing name
	resp = request(t, app, http.MethodPost, Path, true, fiber.Map{"id": "app-b"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// non-admin
	resp = request(t, app, http.MethodPost, Path, false, fiber.Map{"id": "app-b", "name": "App B"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGetAndListEndpoints(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := request(t, app, http.MethodPost, Path, true, fiber.Map{"id": "app-a", "name": "App A"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = request(t, app, http.MethodGet, Path, false, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var apps []models.Application
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apps))
	assert.Len(t, apps, 1)

	resp = request(t, app, http.MethodGet, Path+"/app-a", false, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, app, http.MethodGet, Path+"/app-b", false, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := request(t, app, http.MethodPost, Path, true, fiber.Map{"id": "app-a", "name": "App A"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = request(t, app, http.MethodPut, Path+"/app-a", true, fiber.Map{"description": "updated"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Application
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, "App A", updated.Name)
	assert.Equal(t, "updated", updated.Description)
	assert.NotNil(t, updated.UpdatedAt)
}

func TestDeleteEndpoint(t *testing.T) {
	app, db, engine := newTestApp(t)

	resp := request(t, app, http.MethodPost, Path, true, fiber.Map{"id": "app-a", "name": "App A"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, err := rolemapping.Create(db, &models.RoleMapping{
		ApplicationID: "app-a", Environment: "DEV", ADGroup: "grp-user", Role: "user",
	})
	require.NoError(t, err)

	resp = request(t, app, http.MethodDelete, Path+"/app-a", true, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, engine.pushCount)

	// mappings of the application are gone too
	mappings, err := rolemapping.GetAll(db, "app-a")
	require.NoError(t, err)
	assert.Empty(t, mappings)

	resp = request(t, app, http.MethodDelete, Path+"/app-a", true, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
