package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/illarion/passvault/internal/vault"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	faintColor   = color.New(color.Faint)
)

func printSuccess(w io.Writer, format string, args ...any) {
	successColor.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	warnColor.Fprint(w, "! ")
	fmt.Fprintf(w, format+"\n", args...)
}

// HandleError prints err with a hint for the errors a user can act on
func HandleError(w io.Writer, err error) {
	var (
		unlockErr *vault.UnlockError
		validErr  *vault.ValidationError
	)

	errorColor.Fprint(w, "Error: ")
	switch {
	case errors.Is(err, vault.ErrNotInitialized):
		fmt.Fprintln(w, "vault not initialized")
		fmt.Fprintln(w, "Run 'passvault init' first")
	case errors.Is(err, vault.ErrAlreadyExists):
		fmt.Fprintln(w, "a vault already exists")
		fmt.Fprintln(w, "Use 'passvault status' to see where it is")
	case errors.Is(err, vault.ErrInconsistentState):
		fmt.Fprintf(w, "%s\n", err)
		fmt.Fprintln(w, "The salt file and the vault file belong together; restore the missing one from a backup")
	case errors.As(err, &unlockErr) && unlockErr.Kind == vault.FailureIO:
		fmt.Fprintf(w, "cannot read vault: %v\n", unlockErr.Err)
	case errors.Is(err, vault.ErrUnlockFailed):
		fmt.Fprintln(w, "wrong master password or damaged vault file")
	case errors.Is(err, vault.ErrVaultBusy):
		fmt.Fprintln(w, "vault is in use by another passvault process")
	case errors.Is(err, vault.ErrHistoryDisabled):
		fmt.Fprintln(w, "snapshot history is disabled")
		fmt.Fprintln(w, "Set history.enabled: true in the config file")
	case errors.As(err, &validErr):
		fmt.Fprintf(w, "invalid %s: %s\n", validErr.Field, validErr.Reason)
	case errors.Is(err, vault.ErrNotFound):
		fmt.Fprintf(w, "%s\n", err)
	default:
		fmt.Fprintf(w, "%s\n", err)
	}
}

// unlock opens store with the first passphrase source that has one:
// PASSVAULT_PASSWORD, the OS keyring, then an interactive prompt. A stale
// keyring entry falls through to the prompt.
func (c *cli) unlock(cmd *cobra.Command, store *vault.Store) error {
	if !store.Exists() {
		return vault.ErrNotInitialized
	}

	if password := GetPasswordFromEnv(); password != nil {
		defer crypto.ClearBytes(password)
		return store.Unlock(password)
	}

	if c.cfg.Keyring.Enabled {
		if password := c.keyringPassword(store); password != nil {
			err := store.Unlock(password)
			crypto.ClearBytes(password)
			if err == nil {
				return nil
			}
			var unlockErr *vault.UnlockError
			if !errors.As(err, &unlockErr) || unlockErr.Kind != vault.FailureAuthentication {
				return err
			}
			printWarning(cmd.ErrOrStderr(), "Password in keyring no longer matches; run 'passvault keyring save' to update it")
		}
	}

	password, err := c.readPassword(cmd, "Master password: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)
	return store.Unlock(password)
}

// keyringPassword returns the cached passphrase or nil
func (c *cli) keyringPassword(store *vault.Store) []byte {
	vaultID, err := store.VaultID()
	if err != nil {
		c.log.Debug("no vault id for keyring lookup", "error", err)
		return nil
	}
	password, err := keyring.GetPassword(vaultID)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			c.log.Debug("keyring lookup failed", "error", err)
		}
		return nil
	}
	return []byte(password)
}

// confirm asks a yes/no question, defaulting to no
func (c *cli) confirm(cmd *cobra.Command, question string) (bool, error) {
	answer, err := c.readLine(cmd, question+" [y/N]: ")
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "Y" || answer == "yes", nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
