package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/passvault/internal/git"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/illarion/passvault/internal/vault"
)

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the vault lives and whether it is initialized",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Vault:    %s\n", c.cfg.VaultPath())
			fmt.Fprintf(out, "Salt:     %s\n", c.cfg.SaltPath())

			saltPresent := fileExists(c.cfg.SaltPath())
			switch {
			case store.State() == vault.StateUninitialized && saltPresent:
				fmt.Fprintf(out, "State:    %s\n", errorColor.Sprint("inconsistent (salt without vault file)"))
			case store.State() == vault.StateUninitialized:
				fmt.Fprintln(out, "State:    not initialized")
				fmt.Fprintln(out, "Run 'passvault init' to create a vault")
				return nil
			case !saltPresent:
				fmt.Fprintf(out, "State:    %s\n", errorColor.Sprint("inconsistent (vault file without salt)"))
			default:
				fmt.Fprintln(out, "State:    initialized")
			}

			if !store.HistoryEnabled() {
				fmt.Fprintln(out, "History:  disabled")
			} else {
				count, last, err := store.HistoryStats()
				switch {
				case err != nil:
					fmt.Fprintf(out, "History:  unavailable (%v)\n", err)
				case count == 0:
					fmt.Fprintln(out, "History:  no snapshots")
				default:
					fmt.Fprintf(out, "History:  %d snapshots, last saved %s\n", count, last.Local().Format(time.RFC3339))
				}
			}

			files := []string{c.cfg.VaultPath(), c.cfg.SaltPath()}
			if p := c.cfg.HistoryPath(); p != "" {
				files = append(files, p)
			}
			if exp, err := git.Check(files); err != nil {
				c.log.Debug("git check failed", "error", err)
			} else if exp.Exposed() {
				warnColor.Fprint(out, git.Format(exp))
			} else {
				fmt.Fprint(out, git.Format(exp))
			}

			if !c.cfg.Keyring.Enabled {
				fmt.Fprintln(out, "Keyring:  disabled")
				return nil
			}
			vaultID, err := store.VaultID()
			if err != nil {
				fmt.Fprintf(out, "Keyring:  unavailable (%v)\n", err)
				return nil
			}
			if keyring.HasPassword(vaultID) {
				fmt.Fprintln(out, "Keyring:  password stored")
			} else {
				fmt.Fprintln(out, "Keyring:  no password stored")
			}
			return nil
		},
	}
}
