// Package config loads passvault settings from a YAML file and PASSVAULT_
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the complete passvault configuration
type Config struct {
	DataDir   string          `mapstructure:"data_dir" validate:"required"`
	VaultFile string          `mapstructure:"vault_file" validate:"required"`
	SaltFile  string          `mapstructure:"salt_file" validate:"required"`
	History   HistoryConfig   `mapstructure:"history"`
	Clipboard ClipboardConfig `mapstructure:"clipboard"`
	Keyring   KeyringConfig   `mapstructure:"keyring"`
	Log       LogConfig       `mapstructure:"log"`
}

// HistoryConfig controls the snapshot database
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file" validate:"required_if=Enabled true"`
	Keep    int    `mapstructure:"keep" validate:"min=1,max=1000"`
}

// ClipboardConfig controls copied passwords
type ClipboardConfig struct {
	// ClearAfter is how long a copied password stays on the clipboard;
	// zero leaves it there
	ClearAfter time.Duration `mapstructure:"clear_after" validate:"min=0"`
}

// KeyringConfig controls the OS keyring passphrase cache
type KeyringConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig controls the diagnostic logger
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// VaultPath returns the vault file location
func (c *Config) VaultPath() string {
	return c.resolve(c.VaultFile)
}

// SaltPath returns the salt file location
func (c *Config) SaltPath() string {
	return c.resolve(c.SaltFile)
}

// HistoryPath returns the snapshot database location, empty when history
// is disabled
func (c *Config) HistoryPath() string {
	if !c.History.Enabled {
		return ""
	}
	return c.resolve(c.History.File)
}

// resolve places relative file names under the data directory
func (c *Config) resolve(name string) string {
	name = expandHome(name)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(expandHome(c.DataDir), name)
}

// expandHome replaces a leading ~ with the user's home directory
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
