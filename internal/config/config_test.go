package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, "content_change", cfg.Listener.Channel)
	assert.Equal(t, 5*time.Second, cfg.Backoff())
	assert.Equal(t, SourcePostgres, cfg.Source.Kind)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval())
	assert.Equal(t, 30*time.Second, cfg.RecommendationTTL())
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  addr: ":9090"
  log_level: debug
source:
  kind: file
postgres:
  host: db
  user: app
  password: secret
  db_name: targeting
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "application.yaml"), yaml, 0o600))
	t.Setenv("APP_POSTGRES_PORT", "6543")
	t.Setenv("APP_CACHE_RECOMMENDATION_TTL_SECONDS", "5")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, SourceFile, cfg.Source.Kind)
	assert.Equal(t, "configs/content.yaml", cfg.Source.Path)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t, 5*time.Second, cfg.RecommendationTTL())
	assert.Equal(t, "postgres://app:secret@db:6543/targeting?sslmode=disable", cfg.DSN())
}

func TestLoadFrom_EnvironmentOverlay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "application.yaml"), []byte("server:\n  addr: \":9090\"\n  log_level: info\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staging.yaml"), []byte("server:\n  log_level: warn\n"), 0o600))
	t.Setenv("ENV", "Staging")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Server.LogLevel)
}

func TestLoadFrom_NoOverlayWithoutEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dev.yaml"), []byte("source:\n  kind: file\n"), 0o600))
	t.Setenv("ENV", "")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, SourcePostgres, cfg.Source.Kind)

	t.Setenv("ENV", "dev")
	cfg, err = LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, SourceFile, cfg.Source.Kind)
}
