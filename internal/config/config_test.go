package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfigPath(t *testing.T) string {
	t.Helper()

	// Get the project root by going up from internal/config
	projectRoot, err := filepath.Abs("../../")
	require.NoError(t, err)

	return filepath.Join(projectRoot, "etc") + string(filepath.Separator)
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(testConfigPath(t))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Title)
	assert.NotZero(t, cfg.Webserver.Port)
	assert.NotEmpty(t, cfg.Webserver.URL)
	assert.NotEmpty(t, cfg.DB.Host)
	assert.NotEmpty(t, cfg.OPA.URL)
	assert.NotZero(t, cfg.OPA.Timeout)

	// defaults filled by validate
	assert.Equal(t, "HS256", cfg.Auth.JWTAlgorithm)
	assert.NotEmpty(t, cfg.Auth.AdminADGroup)
}

func TestReadConfigEnvOverride(t *testing.T) {
	t.Setenv(EnvConfigJSON, `{"OPA":{"URL":"http://opa.internal:8181"},"Auth":{"AdminADGroup":"other-admins"}}`)

	cfg, err := ReadConfig(testConfigPath(t))
	require.NoError(t, err)

	assert.Equal(t, "http://opa.internal:8181", cfg.OPA.URL)
	assert.Equal(t, "other-admins", cfg.Auth.AdminADGroup)

	// values not mentioned in the override stay from the file
	assert.NotZero(t, cfg.Webserver.Port)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
			OPA:       OPA{URL: "http://localhost:8181"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing webserver port",
			mutate:  func(c *Config) { c.Webserver.Port = 0 },
			wantErr: ErrWebServerPortCanNotBeZero,
		},
		{
			name:    "missing webserver url",
			mutate:  func(c *Config) { c.Webserver.URL = "" },
			wantErr: ErrEmptyURL,
		},
		{
			name:    "missing opa url",
			mutate:  func(c *Config) { c.OPA.URL = "" },
			wantErr: ErrEmptyOPAURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := validate(cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)

			// defaults
			assert.Equal(t, 5, cfg.Webserver.ShutDownTime)
			assert.Equal(t, 5, cfg.OPA.Timeout)
			assert.Equal(t, "HS256", cfg.Auth.JWTAlgorithm)
			assert.Equal(t, "infodir-admin", cfg.Auth.AdminADGroup)
		})
	}
}

func TestDumpConfig(t *testing.T) {
	cfg, err := ReadConfig(testConfigPath(t))
	require.NoError(t, err)

	out, err := DumpConfig(cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Title")

	jsonOut, err := DumpConfigJSON(cfg)
	require.NoError(t, err)
	assert.Contains(t, jsonOut, `"Title"`)
}
