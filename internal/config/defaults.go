package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	EnvPrefix      = "PASSVAULT"
	ConfigFileName = "config.yaml"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		DataDir:   DefaultDataDir(),
		VaultFile: "vault.enc",
		SaltFile:  "salt.key",
		History: HistoryConfig{
			Enabled: true,
			File:    "history.db",
			Keep:    20,
		},
		Clipboard: ClipboardConfig{
			ClearAfter: 30 * time.Second,
		},
		Keyring: KeyringConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultDataDir is ~/.passvault, or a directory under the temp dir when
// the home directory cannot be determined
func DefaultDataDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".passvault")
	}
	return filepath.Join(userHome, ".passvault")
}

// DefaultConfigPath is the config file inside the default data directory
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), ConfigFileName)
}
