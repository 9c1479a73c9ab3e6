package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DATABASE", "semitexa_test")
	t.Setenv("DB_USERNAME", "root")
	t.Setenv("DB_PASSWORD", "secret")
}

func TestLoad_AppliesDefaults(t *testing.T) {
	setBaseEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "127.0.0.1", cfg.DBHost)
	assert.Equal(t, 3306, cfg.DBPort)
	assert.Equal(t, "utf8mb4", cfg.DBCharset)
	assert.Equal(t, 10, cfg.DBPoolSize)
	assert.False(t, cfg.Overlay.AllowDestructive)
}

func TestLoad_DefaultsDatabaseAndUsernameWhenUnset(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "semitexa", cfg.DBDatabase)
	assert.Equal(t, "root", cfg.DBUsername)
}

func TestLoad_CLIHostPortFallBackToPrimary(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DBCLIHost)
	assert.Equal(t, 3307, cfg.DBCLIPort)
}

func TestLoad_CLIHostPortOverride(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_CLI_HOST", "localhost")
	t.Setenv("DB_CLI_PORT", "13306")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DBCLIHost)
	assert.Equal(t, 13306, cfg.DBCLIPort)
}

func TestLoad_IgnoreTablesSplitsOnComma(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ORM_IGNORE_TABLES", "migrations,cache,sessions")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"migrations", "cache", "sessions"}, cfg.IgnoreTables)
}

func TestLoad_TomlOverlayAppliesAndRejectsUnknownKeys(t *testing.T) {
	setBaseEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "semitexa.toml")
	require.NoError(t, os.WriteFile(path, []byte("allow_destructive = true\naudit_dir = \"custom/history\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Overlay.AllowDestructive)
	assert.Equal(t, "custom/history", cfg.Overlay.AuditDir)

	badPath := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(badPath, []byte("not_a_real_key = true\n"), 0o644))
	_, err = Load(badPath)
	assert.Error(t, err)
}

func TestConfig_DSNIncludesCredentialsAndDatabase(t *testing.T) {
	setBaseEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Contains(t, cfg.DSN(), "root:secret@tcp(127.0.0.1:3306)/semitexa_test")
}
