package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/illarion/passvault/internal/vault"
)

func (c *cli) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and restore earlier versions of the vault",
	}
	cmd.AddCommand(c.historyListCmd(), c.historyRestoreCmd(), c.historyDiffCmd(), c.historyCompactCmd())
	return cmd
}

func parseSeq(arg string) (uint64, error) {
	seq, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || seq == 0 {
		return 0, fmt.Errorf("invalid snapshot number %q", arg)
	}
	return seq, nil
}

func (c *cli) historyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded snapshots",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			snaps, err := store.Snapshots()
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshots")
				return nil
			}

			rows := make([][]string, len(snaps))
			for i, s := range snaps {
				rows[i] = []string{strconv.FormatUint(s.Seq, 10), formatTime(s.SavedAt), strconv.Itoa(s.Size)}
			}
			renderTable(cmd.OutOrStdout(), []string{"#", "Saved", "Bytes"}, rows)
			return nil
		},
	}
}

func (c *cli) historyRestoreCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <snapshot>",
		Short: "Replace the vault contents with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := parseSeq(args[0])
			if err != nil {
				return err
			}

			return c.withStore(cmd, func(store *vault.Store) error {
				if !force {
					yes, err := c.confirm(cmd, fmt.Sprintf("Replace current entries with snapshot %d?", seq))
					if err != nil {
						return err
					}
					if !yes {
						fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
						return nil
					}
				}

				if err := store.Restore(seq); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "Restored snapshot %d (%d entries)", seq, store.Len())
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "restore without confirmation")
	return cmd
}

func (c *cli) historyDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <snapshot>",
		Short: "Show what changed since a snapshot (passwords are never shown)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := parseSeq(args[0])
			if err != nil {
				return err
			}

			return c.withStore(cmd, func(store *vault.Store) error {
				diff, err := store.DiffSnapshot(seq)
				if err != nil {
					return err
				}
				if diff == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No changes")
					return nil
				}
				printDiff(cmd, diff)
				return nil
			})
		},
	}
}

// printDiff colors added and removed lines
func printDiff(cmd *cobra.Command, diff string) {
	out := cmd.OutOrStdout()
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			faintColor.Fprint(out, line)
		case strings.HasPrefix(line, "+"):
			successColor.Fprint(out, line)
		case strings.HasPrefix(line, "-"):
			errorColor.Fprint(out, line)
		default:
			fmt.Fprint(out, line)
		}
	}
}

func (c *cli) historyCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Reclaim unused space in the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.CompactHistory(); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "History compacted")
			return nil
		},
	}
}
