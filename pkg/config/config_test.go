package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ENVIRONMENT", "SERVER_PORT", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS", "STORE_BACKEND",
	"LEADS_FILE", "USERS_FILE", "REDIS_URL", "DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER",
	"DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "JWT_SECRET", "TOKEN_TTL", "BCRYPT_COST",
	"SUBMISSION_RATE_LIMIT", "RATE_LIMIT_WINDOW", "MAX_REQUEST_BYTES", "ADMIN_EMAIL",
	"ADMIN_PASSWORD", "SHUTDOWN_TIMEOUT",
}

// cleanEnv isolates a test from the caller's environment and any .env file
func cleanEnv(t *testing.T) string {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, StoreFile, cfg.StoreBackend)
	assert.Equal(t, "data/fake-db.json", cfg.LeadsFile)
	assert.Equal(t, "data/users-db.json", cfg.UsersFile)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, int64(10<<20), cfg.MaxRequestBytes)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.AdminEmail)
}

func TestLoadOverrides(t *testing.T) {
	cleanEnv(t)
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/leads")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("SUBMISSION_RATE_LIMIT", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.Equal(t, "postgres://u:p@db/leads", cfg.Database.URL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 0, cfg.SubmissionRateLimit)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := cleanEnv(t)
	// godotenv never overrides variables that exist, even empty ones;
	// t.Setenv in cleanEnv restores them afterwards
	os.Unsetenv("SERVER_PORT")
	os.Unsetenv("ADMIN_EMAIL")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_PORT=9090\nADMIN_EMAIL=root@example.com\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "root@example.com", cfg.AdminEmail)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SERVER_PORT", "eighty"},
		{"TOKEN_TTL", "forever"},
		{"TOKEN_TTL", "-1h"},
		{"BCRYPT_COST", "ten"},
		{"RATE_LIMIT_WINDOW", "soon"},
		{"MAX_REQUEST_BYTES", "0"},
		{"STORE_BACKEND", "mongo"},
		{"SHUTDOWN_TIMEOUT", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cleanEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	cleanEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	_, err = Load()
	assert.NoError(t, err)
}
