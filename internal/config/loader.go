package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the YAML file at path. Values missing from
// the file fall back to DefaultConfig; PASSVAULT_* environment variables
// override both (PASSVAULT_HISTORY_KEEP sets history.keep).
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return decode(v)
}

// LoadWithDefaults is Load, except that a missing file yields the default
// configuration with environment overrides applied.
func LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return decode(newViper())
	}
	return Load(path)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so that AutomaticEnv can see it
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("vault_file", d.VaultFile)
	v.SetDefault("salt_file", d.SaltFile)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.file", d.History.File)
	v.SetDefault("history.keep", d.History.Keep)
	v.SetDefault("clipboard.clear_after", d.Clipboard.ClearAfter)
	v.SetDefault("keyring.enabled", d.Keyring.Enabled)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
