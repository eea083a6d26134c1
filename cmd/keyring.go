package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/illarion/passvault/internal/vault"
)

func (c *cli) keyringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage the master password cached in the OS keyring",
	}
	cmd.AddCommand(c.keyringSaveCmd(), c.keyringDeleteCmd(), c.keyringStatusCmd())
	return cmd
}

// vaultID opens the store only to look up its identifier
func (c *cli) vaultID() (string, error) {
	store, err := c.openStore()
	if err != nil {
		return "", err
	}
	defer store.Close()

	if !store.Exists() {
		return "", vault.ErrNotInitialized
	}
	return store.VaultID()
}

func (c *cli) keyringSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Verify the master password and store it in the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if !store.Exists() {
				return vault.ErrNotInitialized
			}

			// Never trust the keyring itself here
			password := GetPasswordFromEnv()
			if password == nil {
				if password, err = c.readPassword(cmd, "Master password: "); err != nil {
					return err
				}
			}
			defer crypto.ClearBytes(password)

			if err := store.Unlock(password); err != nil {
				return err
			}
			store.Lock()

			vaultID, err := store.VaultID()
			if err != nil {
				return err
			}
			if err := keyring.SavePassword(vaultID, string(password)); err != nil {
				return fmt.Errorf("failed to save to keyring: %w", err)
			}

			printSuccess(cmd.OutOrStdout(), "Password saved to keyring")
			return nil
		},
	}
}

func (c *cli) keyringDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the master password from the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vaultID, err := c.vaultID()
			if err != nil {
				return err
			}
			if !keyring.HasPassword(vaultID) {
				fmt.Fprintln(cmd.OutOrStdout(), "No password stored in keyring")
				return nil
			}
			if err := keyring.DeletePassword(vaultID); err != nil {
				return fmt.Errorf("failed to remove from keyring: %w", err)
			}
			printSuccess(cmd.OutOrStdout(), "Password removed from keyring")
			return nil
		},
	}
}

func (c *cli) keyringStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a master password is cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vaultID, err := c.vaultID()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if keyring.HasPassword(vaultID) {
				fmt.Fprintln(out, "Password stored in keyring")
			} else {
				fmt.Fprintln(out, "No password stored in keyring")
			}
			if !c.cfg.Keyring.Enabled {
				printWarning(out, "keyring.enabled is false, so the stored password is not used")
			}
			return nil
		},
	}
}
