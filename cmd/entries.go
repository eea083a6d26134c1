package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/illarion/passvault/internal/generator"
	"github.com/illarion/passvault/internal/vault"
)

const timeLayout = "2006-01-02 15:04"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// renderTable draws rows with a header using lipgloss
func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

func formatTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}

func (c *cli) addCmd() *cobra.Command {
	var (
		username string
		genLen   int
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "add <site>",
		Short: "Add a credential, or replace the one stored for the site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site := args[0]
			return c.withStore(cmd, func(store *vault.Store) error {
				existing, existed, err := store.Find(site)
				if err != nil {
					return err
				}
				if existed {
					if !force {
						yes, err := c.confirm(cmd, fmt.Sprintf("Overwrite existing entry for %s?", existing.Site))
						if err != nil {
							return err
						}
						if !yes {
							fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
							return nil
						}
					}
					site = existing.Site
				}

				if username == "" {
					if username, err = c.readLine(cmd, "Username: "); err != nil {
						return err
					}
				}

				var password string
				generated := genLen > 0
				if generated {
					if password, err = generator.Generate(genLen, true, true, true); err != nil {
						return err
					}
				} else {
					raw, err := c.readPassword(cmd, "Password (empty to generate): ")
					if err != nil {
						return err
					}
					password = string(raw)
					if password == "" {
						if password, err = generator.GenerateWith(generator.DefaultOptions()); err != nil {
							return err
						}
						generated = true
					}
				}

				if err := store.AddOrUpdate(site, username, password); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if existed {
					printSuccess(out, "Updated %s", site)
				} else {
					printSuccess(out, "Added %s", site)
				}
				if generated {
					fmt.Fprintf(out, "Generated password: %s\n", password)
				}
				fmt.Fprintf(out, "Strength: %s\n", strengthLabel(generator.StrengthOf(password)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username for the site")
	cmd.Flags().IntVarP(&genLen, "generate", "g", 0, "generate a random password of this length")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing entry without confirmation")
	return cmd
}

func strengthLabel(s generator.Strength) string {
	switch s {
	case generator.Strong:
		return successColor.Sprint(s)
	case generator.Medium:
		return warnColor.Sprint(s)
	default:
		return errorColor.Sprint(s)
	}
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored sites and usernames",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd, func(store *vault.Store) error {
				entries, err := store.List()
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No entries")
					return nil
				}

				rows := make([][]string, len(entries))
				for i, e := range entries {
					rows[i] = []string{e.Site, e.Username, formatTime(e.CreatedAt)}
				}
				renderTable(cmd.OutOrStdout(), []string{"Site", "Username", "Saved"}, rows)
				return nil
			})
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword>",
		Short: "Find sites containing a keyword (case-insensitive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(store *vault.Store) error {
				matches, err := store.Search(args[0])
				if err != nil {
					return err
				}
				if len(matches) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No sites match %q\n", args[0])
					return nil
				}

				rows := make([][]string, len(matches))
				for i, m := range matches {
					rows[i] = []string{strconv.Itoa(m.Index + 1), m.Site, m.Username, formatTime(m.CreatedAt)}
				}
				renderTable(cmd.OutOrStdout(), []string{"#", "Site", "Username", "Saved"}, rows)
				return nil
			})
		},
	}
}

func (c *cli) getCmd() *cobra.Command {
	var (
		toClipboard bool
		index       int
	)

	cmd := &cobra.Command{
		Use:   "get [site]",
		Short: "Print or copy the password stored for a site",
		Long: `Print or copy the password stored for a site. With --index, the entry is
selected by the number shown in 'passvault search' instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (index > 0) {
				return fmt.Errorf("give either a site or --index")
			}

			return c.withStore(cmd, func(store *vault.Store) error {
				var entry vault.Entry
				if index > 0 {
					var err error
					if entry, err = store.EntryAt(index - 1); err != nil {
						return err
					}
				} else {
					password, ok, err := store.Password(args[0])
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("%w: %s", vault.ErrNotFound, args[0])
					}
					entry = vault.Entry{Site: args[0], Password: password}
				}

				if toClipboard {
					// the vault stays locked while waiting to clear
					store.Lock()
					return copyWithClear(cmd, entry.Site, entry.Password, c.cfg.Clipboard.ClearAfter)
				}
				fmt.Fprintln(cmd.OutOrStdout(), entry.Password)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&toClipboard, "copy", "c", false, "copy to the clipboard instead of printing")
	cmd.Flags().IntVarP(&index, "index", "i", 0, "entry number from 'passvault search'")
	return cmd
}

func (c *cli) rmCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "rm <site>",
		Aliases: []string{"delete"},
		Short:   "Remove the credential stored for a site",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site := args[0]
			return c.withStore(cmd, func(store *vault.Store) error {
				existing, ok, err := store.Find(site)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s", vault.ErrNotFound, site)
				}
				site = existing.Site

				if !force {
					yes, err := c.confirm(cmd, fmt.Sprintf("Remove %s?", site))
					if err != nil {
						return err
					}
					if !yes {
						fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
						return nil
					}
				}

				if err := store.Delete(site); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "Removed %s", site)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "remove without confirmation")
	return cmd
}
