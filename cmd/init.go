package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/vault"
)

func (c *cli) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new vault protected by a master password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			password := GetPasswordFromEnv()
			if password != nil && len([]rune(string(password))) < MinMasterPassword {
				crypto.ClearBytes(password)
				return fmt.Errorf("master password must be at least %d characters", MinMasterPassword)
			}
			if password == nil {
				if store.Exists() {
					return vault.ErrAlreadyExists
				}
				password, err = c.readPasswordConfirm(cmd)
				if err != nil {
					return err
				}
			}
			defer crypto.ClearBytes(password)

			if err := store.Initialize(password); err != nil {
				return err
			}

			printSuccess(cmd.OutOrStdout(), "Initialized vault at %s", store.Path())
			return nil
		},
	}
}
