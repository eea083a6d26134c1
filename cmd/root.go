// Package cmd implements the passvault command line.
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/illarion/passvault/internal/config"
	"github.com/illarion/passvault/internal/logging"
	"github.com/illarion/passvault/internal/vault"
)

// cli holds state shared by every command of one invocation
type cli struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *slog.Logger

	in     io.Reader
	reader *bufio.Reader
}

// Execute runs passvault with the process arguments
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the complete command tree
func NewRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "passvault",
		Short: "Encrypted local password vault",
		Long: `passvault keeps site credentials in a single file encrypted with
AES-256-GCM under a key derived from your master password.

The master password is taken from PASSVAULT_PASSWORD, the OS keyring
(after 'passvault keyring save'), or an interactive prompt.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.passvault/config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "diagnostic log level: debug, info, warn, error")

	root.AddCommand(
		c.initCmd(),
		c.addCmd(),
		c.listCmd(),
		c.searchCmd(),
		c.getCmd(),
		c.rmCmd(),
		c.generateCmd(),
		c.statusCmd(),
		c.historyCmd(),
		c.keyringCmd(),
		c.browseCmd(),
		c.configCmd(),
	)
	return root
}

// load reads the configuration and builds the logger before any command
func (c *cli) load(cmd *cobra.Command, _ []string) error {
	path := c.configFile()

	var err error
	if c.configPath != "" && cmd.Annotations[annotationConfigOptional] == "" {
		c.cfg, err = config.Load(path)
	} else {
		c.cfg, err = config.LoadWithDefaults(path)
	}
	if err != nil {
		return err
	}

	level := c.cfg.Log.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	c.log, err = logging.New(level, c.cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	c.in = cmd.InOrStdin()
	c.log.Debug("configuration loaded", "path", path, "data_dir", c.cfg.DataDir)
	return nil
}

// configFile is the --config path or the default location
func (c *cli) configFile() string {
	if c.configPath != "" {
		return c.configPath
	}
	return config.DefaultConfigPath()
}

// openStore binds a vault.Store to the configured files
func (c *cli) openStore() (*vault.Store, error) {
	store, err := vault.New(vault.Options{
		VaultPath:   c.cfg.VaultPath(),
		SaltPath:    c.cfg.SaltPath(),
		HistoryPath: c.cfg.HistoryPath(),
		HistoryKeep: c.cfg.History.Keep,
		Logger:      c.log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	return store, nil
}

// withStore runs fn with an unlocked store and locks it afterwards
func (c *cli) withStore(cmd *cobra.Command, fn func(*vault.Store) error) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := c.unlock(cmd, store); err != nil {
		return err
	}
	return fn(store)
}
