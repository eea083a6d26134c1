package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/passvault/internal/generator"
)

func (c *cli) generateCmd() *cobra.Command {
	var (
		length    int
		noUpper   bool
		noDigits  bool
		noSpecial bool
		words     int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random password or diceware passphrase",
		Long: `Generate a random password. Every enabled character class appears at
least once. With --words, a diceware passphrase is produced instead.
Nothing is stored and the vault is not opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				secret string
				err    error
			)
			if words > 0 {
				secret, err = generator.Passphrase(words)
			} else {
				secret, err = generator.Generate(length, !noUpper, !noDigits, !noSpecial)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), secret)
			if words == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Strength: %s\n", strengthLabel(generator.StrengthOf(secret)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&length, "length", "n", generator.DefaultLength, "password length (minimum 4)")
	cmd.Flags().BoolVar(&noUpper, "no-upper", false, "leave out uppercase letters")
	cmd.Flags().BoolVar(&noDigits, "no-digits", false, "leave out digits")
	cmd.Flags().BoolVar(&noSpecial, "no-special", false, "leave out special characters")
	cmd.Flags().IntVarP(&words, "words", "w", 0, "generate a diceware passphrase of this many words")
	return cmd
}
