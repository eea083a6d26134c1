package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/illarion/passvault/internal/storage"
)

// fileConfig mirrors Config in the layout of config.yaml, with durations
// written the way a user would type them
type fileConfig struct {
	DataDir   string `yaml:"data_dir"`
	VaultFile string `yaml:"vault_file"`
	SaltFile  string `yaml:"salt_file"`
	History   struct {
		Enabled bool   `yaml:"enabled"`
		File    string `yaml:"file"`
		Keep    int    `yaml:"keep"`
	} `yaml:"history"`
	Clipboard struct {
		ClearAfter string `yaml:"clear_after"`
	} `yaml:"clipboard"`
	Keyring struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"keyring"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Marshal renders cfg as a YAML document that Load accepts
func Marshal(cfg *Config) ([]byte, error) {
	var fc fileConfig
	fc.DataDir = cfg.DataDir
	fc.VaultFile = cfg.VaultFile
	fc.SaltFile = cfg.SaltFile
	fc.History.Enabled = cfg.History.Enabled
	fc.History.File = cfg.History.File
	fc.History.Keep = cfg.History.Keep
	fc.Clipboard.ClearAfter = cfg.Clipboard.ClearAfter.String()
	fc.Keyring.Enabled = cfg.Keyring.Enabled
	fc.Log.Level = cfg.Log.Level
	fc.Log.Format = cfg.Log.Format

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Write saves cfg to path. An existing file is replaced only if overwrite
// is set.
func Write(path string, cfg *Config, overwrite bool) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if overwrite {
		err = storage.WriteFileAtomic(path, data, 0600)
	} else {
		err = storage.CreateFileExclusive(path, data, 0600)
	}
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
