package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrisdamba/excursiondesk/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	os.Clearenv()

	cfg, err := config.NewConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "http://localhost:8000/api/sales", cfg.SalesAPI.BaseURL())
	assert.Equal(t, 15*time.Second, cfg.SalesAPI.Timeout)
	assert.Equal(t, "csrf/", cfg.SalesAPI.CSRFPath)
	assert.Equal(t, "bookings/?limit=1", cfg.SalesAPI.ProbePath)
	assert.Equal(t, "login/", cfg.SalesAPI.LoginPath)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "excursiondesk", cfg.Database.Name)
	assert.Equal(t, 4, cfg.Database.MaxPoolConns)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 12*time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
}

func TestNewConfigWithEnvVars(t *testing.T) {
	os.Clearenv()

	envVars := map[string]string{
		"DESK_BACKEND":      "https://office.example.com/",
		"DESK_SALES_BASE":   "/api/v2/sales/",
		"DESK_TIMEOUT":      "30s",
		"DESK_SNAPSHOTS":    "true",
		"POSTGRES_HOST":     "db.example.com",
		"POSTGRES_PASSWORD": "testpass",
		"MAX_CONNS":         "8",
		"REDIS_ADDR":        "cache:6379",
		"REDIS_DB":          "2",
		"DESK_PROFILE":      "front-desk",
		"DESK_SESSION_TTL":  "1h",
		"DESK_LOG_LEVEL":    "debug",
	}

	for k, v := range envVars {
		os.Setenv(k, v)
	}

	cfg, err := config.NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://office.example.com/api/v2/sales", cfg.SalesAPI.BaseURL())
	assert.Equal(t, 30*time.Second, cfg.SalesAPI.Timeout)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 8, cfg.Database.MaxPoolConns)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "front-desk", cfg.Redis.Profile)
	assert.Equal(t, time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoadFile(t *testing.T) {
	os.Clearenv()

	path := filepath.Join(t.TempDir(), "desk.yaml")
	data := []byte(`
sales_api:
  backend: https://sales.example.com
  timeout: 5s
database:
  enabled: true
  name: desk_snapshots
redis:
  addr: localhost:6379
log:
  level: warn
  format: json
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	os.Setenv("DESK_CONFIG", path)
	os.Setenv("POSTGRES_DB", "from_env")

	cfg, err := config.NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://sales.example.com/api/sales", cfg.SalesAPI.BaseURL())
	assert.Equal(t, 5*time.Second, cfg.SalesAPI.Timeout)
	assert.Equal(t, "csrf/", cfg.SalesAPI.CSRFPath, "defaults survive a partial file")
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "from_env", cfg.Database.Name, "environment wins over the file")
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, slog.LevelWarn, cfg.Log.SlogLevel())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFile_Missing(t *testing.T) {
	os.Clearenv()

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	dbConfig := config.DatabaseConfig{
		Host:         "localhost",
		Port:         "5432",
		Name:         "testdb",
		User:         "testuser",
		Password:     "testpass",
		MaxPoolConns: 50,
	}

	expected := "host=localhost port=5432 dbname=testdb user=testuser password=testpass pool_max_conns=50"
	assert.Equal(t, expected, dbConfig.DSN())
}

func TestInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "Invalid timeout",
			envVars: map[string]string{"DESK_TIMEOUT": "invalid"},
		},
		{
			name:    "Invalid max connections",
			envVars: map[string]string{"MAX_CONNS": "invalid"},
		},
		{
			name:    "Invalid snapshots flag",
			envVars: map[string]string{"DESK_SNAPSHOTS": "sometimes"},
		},
		{
			name:    "Invalid redis db",
			envVars: map[string]string{"REDIS_DB": "zero"},
		},
		{
			name:    "Invalid session ttl",
			envVars: map[string]string{"DESK_SESSION_TTL": "forever"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			_, err := config.NewConfig()
			assert.Error(t, err)
		})
	}
}
