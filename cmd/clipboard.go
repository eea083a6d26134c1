package cmd

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// replaced in tests
var (
	clipboardWrite = clipboard.WriteAll
	clipboardRead  = clipboard.ReadAll
)

// copyWithClear puts password on the clipboard and, when after > 0, waits
// and clears it again. Interrupting the wait clears immediately. The
// clipboard is left alone if something else was copied meanwhile.
func copyWithClear(cmd *cobra.Command, site, password string, after time.Duration) error {
	if err := clipboardWrite(password); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}

	out := cmd.OutOrStdout()
	if after <= 0 {
		printSuccess(out, "Password for %s copied to clipboard", site)
		return nil
	}
	printSuccess(out, "Password for %s copied to clipboard, clearing in %s", site, after)
	faintColor.Fprintln(out, "Press Ctrl+C to clear now")

	timer := time.NewTimer(after)
	defer timer.Stop()
	select {
	case <-cmd.Context().Done():
	case <-timer.C:
	}

	current, err := clipboardRead()
	if err != nil || current != password {
		return nil
	}
	if err := clipboardWrite(""); err != nil {
		return fmt.Errorf("failed to clear clipboard: %w", err)
	}
	fmt.Fprintln(out, "Clipboard cleared")
	return nil
}
