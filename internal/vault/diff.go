package vault

import (
	"fmt"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const passwordChangedMarker = "(password changed)"

// renderEntries produces one password-free line per entry. Entries of next
// whose password differs from the same site in prev get a marker.
func renderEntries(entries, prev []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s  %s", e.Site, e.Username, e.CreatedAt.UTC().Format(time.RFC3339))
		if prev != nil {
			if i := indexOf(prev, e.Site); i >= 0 && prev[i].Password != e.Password {
				b.WriteString("  " + passwordChangedMarker)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// diffEntries returns a line diff from old to cur, empty when the rendered
// listings are identical
func diffEntries(oldName, curName string, old, cur []Entry) string {
	oldText := renderEntries(old, nil)
	curText := renderEntries(cur, old)
	if oldText == curText {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for better output
	a, b, lineArray := dmp.DiffLinesToChars(oldText, curText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var result strings.Builder
	fmt.Fprintf(&result, "--- %s\n", oldName)
	fmt.Fprintf(&result, "+++ %s\n", curName)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			result.WriteString(prefix + line)
			if !strings.HasSuffix(line, "\n") {
				result.WriteByte('\n')
			}
		}
	}
	return result.String()
}
