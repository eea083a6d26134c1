package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/illarion/passvault/internal/vault"
)

func TestMain(m *testing.M) {
	// never touch the real OS keyring from tests
	gokeyring.MockInit()
	os.Exit(m.Run())
}

type testEnv struct {
	t       *testing.T
	dir     string
	cfgPath string
}

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("data_dir: %s\nkeyring:\n  enabled: false\nhistory:\n  keep: 5\n%s", dir, extraConfig)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0600))
	t.Setenv(PasswordEnv, "")
	return &testEnv{t: t, dir: dir, cfgPath: cfgPath}
}

func (e *testEnv) run(stdin string, args ...string) (string, string, error) {
	e.t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func (e *testEnv) mustRun(stdin string, args ...string) string {
	e.t.Helper()
	out, errOut, err := e.run(stdin, args...)
	require.NoError(e.t, err, "stderr: %s", errOut)
	return out
}

func TestEntryCommands(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv(PasswordEnv, "correct-horse")

	out := env.mustRun("", "init")
	assert.Contains(t, out, "Initialized vault")

	out = env.mustRun("p@ss1\n", "add", "github.com", "-u", "alice")
	assert.Contains(t, out, "Added github.com")
	assert.Contains(t, out, "Strength: Medium")

	out = env.mustRun("y\nn3w-Passw0rd!\n", "add", "GitHub.com", "-u", "alice2")
	assert.Contains(t, out, "Updated github.com")
	assert.NotContains(t, out, "GitHub.com")

	out = env.mustRun("bob\nhunter2\n", "add", "example.com")
	assert.Contains(t, out, "Added example.com")

	out = env.mustRun("", "list")
	assert.Contains(t, out, "github.com")
	assert.Contains(t, out, "alice2")
	assert.Contains(t, out, "example.com")
	assert.NotContains(t, out, "hunter2")

	out = env.mustRun("", "get", "GITHUB.COM")
	assert.Equal(t, "n3w-Passw0rd!\n", out)

	out = env.mustRun("", "search", "EXAMPLE")
	assert.Contains(t, out, "example.com")
	assert.NotContains(t, out, "github.com")

	out = env.mustRun("", "get", "--index", "2")
	assert.Equal(t, "hunter2\n", out)

	out = env.mustRun("n\n", "rm", "example.com")
	assert.Contains(t, out, "Cancelled")

	out = env.mustRun("", "rm", "example.com", "--force")
	assert.Contains(t, out, "Removed example.com")

	_, _, err := env.run("", "get", "example.com")
	assert.ErrorIs(t, err, vault.ErrNotFound)
}

func TestAddGeneratesPassword(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv(PasswordEnv, "correct-horse")
	env.mustRun("", "init")

	out := env.mustRun("", "add", "site.io", "-u", "me", "--generate", "24")
	assert.Contains(t, out, "Generated password: ")

	pw := strings.TrimSpace(env.mustRun("", "get", "site.io"))
	assert.Len(t, pw, 24)
	assert.Contains(t, out, pw)

	// empty input also generates
	out = env.mustRun("\n", "add", "other.io", "-u", "me")
	assert.Contains(t, out, "Generated password: ")
}

func TestAddExistingDeclined(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv(PasswordEnv, "correct-horse")
	env.mustRun("", "init")
	env.mustRun("p@ss1\n", "add", "github.com", "-u", "alice")

	out, errOut, err := env.run("n\n", "add", "GITHUB.COM", "-u", "mallory")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Contains(t, errOut, "Overwrite existing entry for github.com?")
	assert.NotContains(t, errOut, "Password")

	// no answer at all keeps the entry too
	_, _, err = env.run("", "add", "github.com", "-u", "mallory")
	assert.Error(t, err)

	assert.Equal(t, "p@ss1\n", env.mustRun("", "get", "github.com"))
	out = env.mustRun("", "list")
	assert.Contains(t, out, "alice")
	assert.NotContains(t, out, "mallory")
}

func TestAddExistingForced(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv(PasswordEnv, "correct-horse")
	env.mustRun("", "init")
	env.mustRun("p@ss1\n", "add", "github.com", "-u", "alice")

	out, errOut, err := env.run("changed-pw\n", "add", "GitHub.COM", "-u", "alice", "--force")
	require.NoError(t, err)
	assert.NotContains(t, errOut, "Overwrite")
	assert.Contains(t, out, "Updated github.com")
	assert.Equal(t, "changed-pw\n", env.mustRun("", "get", "github.com"))

	out = env.mustRun("", "add", "github.com", "-u", "alice", "-f", "-g", "20")
	assert.Contains(t, out, "Updated github.com")
	assert.Len(t, strings.TrimSpace(env.mustRun("", "get", "github.com")), 20)
}

func TestAddValidation(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv(PasswordEnv, "correct-horse")
	env.mustRun("", "init")

	_, _, err := env.run("   \npw\n", "add", "site.io")
	var vErr *vault.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "username", vErr.Field)
}

func TestInitPrompts(t *testing.T) {
	env := newTestEnv(t, "")

	_, _, err := env.run("short\n", "init")
	assert.ErrorContains(t, err, "at least 6 characters")

	_, _, err = env.run("secret1\nsecret2\n", "init")
	assert.ErrorContains(t, err, "do not match")

	out := env.mustRun("secret1\nsecret1\n", "init")
	assert.Contains(t, out, "Initialized vault")

	_, _, err = env.run("secret1\nsecret1\n", "init")
	assert.ErrorIs(t, err, vault.ErrAlreadyExists)

	_, _, err = env.run("wrong-pass\n", "list")
	assert.ErrorIs(t, err, vault.ErrUnlockFailed)

	out = env.mustRun("secret1\n", "list")
	assert.Contains(t, out, "No entries")
}

func TestInitRejectsShortEnvPassword(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv(PasswordEnv, "abc")

	_, _, err := env.run("", "init")
	assert.ErrorContains(t, err, "at least 6 characters")
}

func TestNotInitialized(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv(PasswordEnv, "correct-horse")

	_, _, err := env.run("", "list")
	assert.ErrorIs(t, err, vault.ErrNotInitialized)
}

func TestGenerate(t *testing.T) {
	env := newTestEnv(t, "")

	out := env.mustRun("", "generate", "-n", "20", "--no-special")
	pw := strings.TrimSpace(out)
	assert.Len(t, pw, 20)
	assert.False(t, strings.ContainsAny(pw, "!@#$%^&*()_+-=[]{}|;:,.<>?"))

	out = env.mustRun("", "generate", "--words", "4")
	assert.GreaterOrEqual(t, len(strings.Split(strings.TrimSpace(out), "-")), 4)

	// generation never creates a vault
	_, err := os.Stat(filepath.Join(env.dir, "vault.enc"))
	assert.True(t, os.IsNotExist(err))
}

func TestHistoryCommands(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv(PasswordEnv, "correct-horse")

	env.mustRun("", "init")
	env.mustRun("pw-a\n", "add", "a.com", "-u", "ua")
	env.mustRun("pw-b\n", "add", "b.com", "-u", "ub")

	out := env.mustRun("", "history", "list")
	for _, seq := range []string{"1", "2", "3"} {
		assert.Contains(t, out, seq)
	}

	out = env.mustRun("", "history", "diff", "2")
	assert.Contains(t, out, "+b.com  ub")
	assert.NotContains(t, out, "pw-b")

	out = env.mustRun("", "history", "diff", "3")
	assert.Contains(t, out, "No changes")

	out = env.mustRun("", "history", "restore", "2", "--force")
	assert.Contains(t, out, "Restored snapshot 2 (1 entries)")

	_, _, err := env.run("", "get", "b.com")
	assert.ErrorIs(t, err, vault.ErrNotFound)

	out = env.mustRun("", "history", "compact")
	assert.Contains(t, out, "History compacted")

	_, _, err = env.run("", "history", "diff", "zero")
	assert.ErrorContains(t, err, "invalid snapshot number")
}

func TestHistoryDisabled(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, os.WriteFile(env.cfgPath, []byte(fmt.Sprintf("data_dir: %s\nhistory:\n  enabled: false\nkeyring:\n  enabled: false\n", env.dir)), 0600))
	t.Setenv(PasswordEnv, "correct-horse")
	env.mustRun("", "init")

	_, _, err := env.run("", "history", "list")
	assert.ErrorIs(t, err, vault.ErrHistoryDisabled)
	_, err = os.Stat(filepath.Join(env.dir, "history.db"))
	assert.True(t, os.IsNotExist(err))
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, "")

	out := env.mustRun("", "status")
	assert.Contains(t, out, "not initialized")

	t.Setenv(PasswordEnv, "correct-horse")
	env.mustRun("", "init")

	out = env.mustRun("", "status")
	assert.Contains(t, out, "State:    initialized")
	assert.Contains(t, out, "History:  1 snapshots, last saved ")
	assert.Contains(t, out, "Keyring:  disabled")

	require.NoError(t, os.Remove(filepath.Join(env.dir, "salt.key")))
	out = env.mustRun("", "status")
	assert.Contains(t, out, "vault file without salt")
}

func TestKeyringCommands(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, os.WriteFile(env.cfgPath, []byte(fmt.Sprintf("data_dir: %s\n", env.dir)), 0600))
	t.Setenv(PasswordEnv, "correct-horse")
	env.mustRun("", "init")

	out := env.mustRun("", "keyring", "status")
	assert.Contains(t, out, "No password stored")

	out = env.mustRun("", "keyring", "save")
	assert.Contains(t, out, "Password saved to keyring")

	// with no env password and no input, the keyring unlocks the vault
	t.Setenv(PasswordEnv, "")
	out = env.mustRun("", "list")
	assert.Contains(t, out, "No entries")

	out = env.mustRun("", "keyring", "delete")
	assert.Contains(t, out, "Password removed from keyring")

	_, _, err := env.run("", "list")
	assert.ErrorContains(t, err, "no input")
}

func TestKeyringSaveRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv(PasswordEnv, "correct-horse")
	env.mustRun("", "init")

	t.Setenv(PasswordEnv, "")
	_, _, err := env.run("wrong-pass\n", "keyring", "save")
	assert.ErrorIs(t, err, vault.ErrUnlockFailed)

	out := env.mustRun("", "keyring", "status")
	assert.Contains(t, out, "No password stored")
}

func TestGetCopy(t *testing.T) {
	var clip string
	origWrite, origRead := clipboardWrite, clipboardRead
	clipboardWrite = func(s string) error { clip = s; return nil }
	clipboardRead = func() (string, error) { return clip, nil }
	t.Cleanup(func() { clipboardWrite, clipboardRead = origWrite, origRead })

	env := newTestEnv(t, "clipboard:\n  clear_after: 10ms\n")
	t.Setenv(PasswordEnv, "correct-horse")
	env.mustRun("", "init")
	env.mustRun("p@ss1\n", "add", "github.com", "-u", "alice")

	out := env.mustRun("", "get", "github.com", "--copy")
	assert.Contains(t, out, "copied to clipboard")
	assert.Contains(t, out, "Clipboard cleared")
	assert.NotContains(t, out, "p@ss1")
	assert.Empty(t, clip)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{vault.ErrNotInitialized, "passvault init"},
		{vault.ErrAlreadyExists, "already exists"},
		{&vault.UnlockError{Kind: vault.FailureAuthentication, Err: errors.New("gcm")}, "wrong master password"},
		{&vault.UnlockError{Kind: vault.FailureIO, Err: errors.New("permission denied")}, "cannot read vault: permission denied"},
		{fmt.Errorf("%w: salt", vault.ErrInconsistentState), "belong together"},
		{vault.ErrVaultBusy, "another passvault process"},
		{vault.ErrHistoryDisabled, "history.enabled"},
		{&vault.ValidationError{Field: "site", Reason: "is required"}, "invalid site: is required"},
		{errors.New("boom"), "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var buf bytes.Buffer
			HandleError(&buf, tt.err)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t, "clipboard:\n  clear_after: 45s\n")

	out := env.mustRun("", "config", "show")
	assert.Contains(t, out, "data_dir: "+env.dir)
	assert.Contains(t, out, "clear_after: 45s")
	assert.Contains(t, out, "keep: 5")

	// config init works on a path that does not exist yet
	target := filepath.Join(env.dir, "sub", "config.yaml")
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetArgs([]string{"--config", target, "config", "init"})
	root.SetOut(&buf)
	root.SetErr(&buf)
	require.NoError(t, root.Execute(), buf.String())
	assert.Contains(t, buf.String(), "Wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "vault_file: vault.enc")

	env.cfgPath = target
	_, _, err = env.run("", "config", "init")
	assert.ErrorIs(t, err, os.ErrExist)
	env.mustRun("", "config", "init", "--force")
}
