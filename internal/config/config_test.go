package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setServerEnv(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoadDefaults(t *testing.T) {
	setServerEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "resumebuilder", cfg.Database.Name)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 10, cfg.Worker.Concurrency)
	assert.Equal(t, "host=localhost port=5432 user=resumebuilder password=resumebuilder dbname=resumebuilder sslmode=disable", cfg.Database.DSN())
}

func TestLoadFromEnv(t *testing.T) {
	setServerEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("API_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("WORKER_PDF_TIMEOUT", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.API.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 2*time.Minute, cfg.Worker.PDFTimeout)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MINIO_ACCESS_KEY_ID", "")
	_, err := Load()
	assert.ErrorContains(t, err, "minio access key id is required")

	setServerEnv(t)
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "240h")
	_, err = Load()
	assert.ErrorContains(t, err, "access token ttl must be shorter")
}

func TestLoadClientReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.env")
	require.NoError(t, writeFile(path, "RESUME_API_URL=http://resume.test\nRESUME_LOAD_RETRIES=4\n"))
	t.Setenv("ENV_FILE", path)
	t.Setenv("RESUME_API_TIMEOUT", "3s")
	t.Cleanup(func() {
		_ = os.Unsetenv("RESUME_API_URL")
		_ = os.Unsetenv("RESUME_LOAD_RETRIES")
	})

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://resume.test", cfg.BaseURL)
	assert.Equal(t, uint64(4), cfg.LoadRetries)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.NotEmpty(t, cfg.CredentialsPath)
	assert.NotEmpty(t, cfg.DraftPath)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
