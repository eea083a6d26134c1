package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Exposure describes how the vault files relate to an enclosing repository
type Exposure struct {
	IsRepo    bool
	RepoRoot  string
	Tracked   []string // committed or staged; must be removed
	Unignored []string // not tracked yet, but not in .gitignore either
}

// Exposed reports whether any file needs attention
func (e *Exposure) Exposed() bool {
	return len(e.Tracked) > 0 || len(e.Unignored) > 0
}

func gitCmd(dir string, args ...string) *exec.Cmd {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	return cmd
}

// RepoRoot returns the top level of the work tree containing dir
func RepoRoot(dir string) (string, bool) {
	out, err := gitCmd(dir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}

// IsTracked checks if a file is tracked by git
func IsTracked(dir, path string) bool {
	out, err := gitCmd(dir, "ls-files", "--", path).Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(out))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(dir, path string) bool {
	// exit code 0 means ignored
	return gitCmd(dir, "check-ignore", "-q", "--", path).Run() == nil
}

// Check inspects files, given as absolute paths. Files outside the
// repository containing the first file's directory are skipped. A missing
// git binary or a directory outside any repository yields IsRepo false.
func Check(files []string) (*Exposure, error) {
	exp := &Exposure{}
	if len(files) == 0 {
		return exp, nil
	}

	dir := filepath.Dir(files[0])
	root, ok := RepoRoot(dir)
	if !ok {
		return exp, nil
	}
	exp.IsRepo = true
	exp.RepoRoot = root

	for _, f := range files {
		// git reports the top level with symlinks resolved
		if real, err := filepath.EvalSymlinks(filepath.Dir(f)); err == nil {
			f = filepath.Join(real, filepath.Base(f))
		}
		rel, err := filepath.Rel(root, f)
		if err != nil {
			return nil, fmt.Errorf("failed to relate %s to %s: %w", f, root, err)
		}
		if !filepath.IsLocal(rel) {
			continue
		}

		switch {
		case IsTracked(root, rel):
			exp.Tracked = append(exp.Tracked, rel)
		case !IsIgnored(root, rel):
			exp.Unignored = append(exp.Unignored, rel)
		}
	}
	return exp, nil
}

// Format renders exp for the status command, empty outside a repository
func Format(exp *Exposure) string {
	if !exp.IsRepo {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Git:      data directory is inside %s\n", exp.RepoRoot)
	for _, f := range exp.Tracked {
		fmt.Fprintf(&b, "   error: %s is tracked by git (run: git rm --cached %s)\n", f, f)
	}
	for _, f := range exp.Unignored {
		fmt.Fprintf(&b, "   warning: %s not in .gitignore\n", f)
	}
	if !exp.Exposed() {
		b.WriteString("   ok: vault files are ignored by git\n")
	}
	return b.String()
}
