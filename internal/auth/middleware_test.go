package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infodir/opa-permission-api/internal/config"
)

func newProtectedApp(t *testing.T) *fiber.App {
	t.Helper()

	decoder := NewDecoder(config.Auth{
		JWTSecret:       testSecret,
		JWTAlgorithm:    "HS256",
		VerifySignature: true,
	})

	app := fiber.New()
	app.Use(RequireUser(decoder))

	app.Get("/whoami", func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		require.True(t, ok)

		return c.JSON(user)
	})

	app.Delete("/admin-only", RequireAdmin("infodir-admin"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	return app
}

func TestRequireUser(t *testing.T) {
	app := newProtectedApp(t)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{
			name:       "no header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer scheme",
			authHeader: "Basic Zm9vOmJhcg==",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "valid token",
			authHeader: "Bearer " + signToken(t, jwt.MapClaims{
				"employee_id": "e-1001",
				"ad_groups":   []any{"grp-user"},
			}, testSecret),
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.authHeader != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	app := newProtectedApp(t)

	tests := []struct {
		name       string
		groups     []any
		wantStatus int
	}{
		{
			name:       "member of the admin group",
			groups:     []any{"grp-user", "infodir-admin"},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "regular user",
			groups:     []any{"grp-user"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no groups at all",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := jwt.MapClaims{"employee_id": "e-1001"}
			if tt.groups != nil {
				claims["ad_groups"] = tt.groups
			}

			req := httptest.NewRequest(http.MethodDelete, "/admin-only", nil)
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signToken(t, claims, testSecret))

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
