package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Contains(t, cfg.DataDir, ".passvault")
	assert.Equal(t, "vault.enc", cfg.VaultFile)
	assert.Equal(t, "salt.key", cfg.SaltFile)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "history.db", cfg.History.File)
	assert.Equal(t, 20, cfg.History.Keep)
	assert.Equal(t, 30*time.Second, cfg.Clipboard.ClearAfter)
	assert.True(t, cfg.Keyring.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	require.NoError(t, Validate(cfg))
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/data"

	assert.Equal(t, filepath.Join("/data", "vault.enc"), cfg.VaultPath())
	assert.Equal(t, filepath.Join("/data", "salt.key"), cfg.SaltPath())
	assert.Equal(t, filepath.Join("/data", "history.db"), cfg.HistoryPath())

	cfg.VaultFile = "/elsewhere/v.enc"
	assert.Equal(t, "/elsewhere/v.enc", cfg.VaultPath())

	cfg.History.Enabled = false
	assert.Empty(t, cfg.HistoryPath())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.DataDir = "~/vaults"
	assert.Equal(t, filepath.Join(home, "vaults", "vault.enc"), cfg.VaultPath())
	assert.Equal(t, "/abs", expandHome("/abs"))
	assert.Equal(t, "~user/x", expandHome("~user/x"))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
data_dir: /tmp/pv
vault_file: secrets.enc
history:
  enabled: false
  keep: 5
clipboard:
  clear_after: 10s
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/pv", cfg.DataDir)
	assert.Equal(t, "secrets.enc", cfg.VaultFile)
	// not in the file, so the default applies
	assert.Equal(t, "salt.key", cfg.SaltFile)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 5, cfg.History.Keep)
	assert.Equal(t, 10*time.Second, cfg.Clipboard.ClearAfter)
	assert.True(t, cfg.Keyring.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PASSVAULT_DATA_DIR", "/from/env")
	t.Setenv("PASSVAULT_HISTORY_KEEP", "7")
	t.Setenv("PASSVAULT_KEYRING_ENABLED", "false")

	path := writeConfig(t, "data_dir: /from/file\n")
	cfg, err := LoadWithDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.Equal(t, 7, cfg.History.Keep)
	assert.False(t, cfg.Keyring.Enabled)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"keep too small", "history:\n  keep: 0\n", "history.keep must be at least 1"},
		{"keep too large", "history:\n  keep: 5000\n", "history.keep must be at most 1000"},
		{"bad level", "log:\n  level: verbose\n", "log.level must be one of"},
		{"bad format", "log:\n  format: xml\n", "log.format must be one of"},
		{"empty vault file", "vault_file: \"\"\n", "vault_file is required"},
		{"negative clear", "clipboard:\n  clear_after: -1s\n", "clipboard.clear_after must be at least 0"},
		{"malformed yaml", "history: [\n", "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateNil(t *testing.T) {
	assert.Error(t, Validate(nil))
}

func TestFormatFieldPath(t *testing.T) {
	assert.Equal(t, "clipboard.clear_after", formatFieldPath("Config.Clipboard.ClearAfter"))
	assert.Equal(t, "vault_file", formatFieldPath("Config.VaultFile"))
	assert.Equal(t, "Config", formatFieldPath("Config"))
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)

	cfg := DefaultConfig()
	cfg.DataDir = "/srv/vault"
	cfg.History.Keep = 7
	cfg.Clipboard.ClearAfter = 90 * time.Second
	cfg.Log.Format = "json"
	require.NoError(t, Write(path, cfg, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "clear_after: 1m30s")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWriteRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, Write(path, DefaultConfig(), false))

	cfg := DefaultConfig()
	cfg.History.Keep = 3
	err := Write(path, cfg, false)
	assert.ErrorIs(t, err, os.ErrExist)

	require.NoError(t, Write(path, cfg, true))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.History.Keep)
}

func TestWriteValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "loud"
	err := Write(filepath.Join(t.TempDir(), ConfigFileName), cfg, false)
	assert.ErrorContains(t, err, "log.level")
}
