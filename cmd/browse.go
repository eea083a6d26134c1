package cmd

import (
	"github.com/spf13/cobra"

	"github.com/illarion/passvault/internal/tui"
	"github.com/illarion/passvault/internal/vault"
)

func (c *cli) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse, copy and edit entries interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd, func(store *vault.Store) error {
				return tui.Run(store, tui.Options{
					ClearAfter: c.cfg.Clipboard.ClearAfter,
					Copy:       clipboardWrite,
					Read:       clipboardRead,
				})
			})
		},
	}
}
