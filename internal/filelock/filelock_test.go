//go:build unix

package filelock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.enc.lock")

	first, err := Acquire(path)
	require.NoError(t, err)

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Release())

	second, err := Acquire(path)
	require.NoError(t, err, "lock should be free after release")
	require.NoError(t, second.Release())
}

func TestReleaseIsIdempotent(t *testing.T) {
	l, err := Acquire(filepath.Join(t.TempDir(), "x.lock"))
	require.NoError(t, err)

	assert.NoError(t, l.Release())
	assert.NoError(t, l.Release())

	var nilLock *Lock
	assert.NoError(t, nilLock.Release())
}
