package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const tempPattern = ".tmp-*"

// WriteFileAtomic replaces path with data. The bytes are written to a
// temporary file in the same directory, synced, and renamed over path, so
// a reader sees either the previous content or the new one in full.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := writeTemp(dir, filepath.Base(path), data, perm)
	if err != nil {
		return err
	}
	// Best-effort cleanup if anything fails before rename
	defer os.Remove(tmp)

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	// the new content is in place; only its durability depends on this
	syncDir(dir)
	return nil
}

// CreateFileExclusive writes data to path only if path does not exist yet.
// The file appears complete or not at all. Returns an error satisfying
// errors.Is(err, os.ErrExist) when path is already present.
func CreateFileExclusive(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := writeTemp(dir, filepath.Base(path), data, perm)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	// link(2) fails with EEXIST instead of overwriting
	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return err
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	syncDir(dir)
	return nil
}

// writeTemp writes data into a fresh temp file next to the target and
// returns its name. The file is synced and closed on success.
func writeTemp(dir, base string, data []byte, perm os.FileMode) (string, error) {
	f, err := os.CreateTemp(dir, base+tempPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()

	fail := func(err error) (string, error) {
		f.Close()
		os.Remove(name)
		return "", err
	}

	if err := f.Chmod(perm); err != nil {
		return fail(fmt.Errorf("failed to set permissions: %w", err))
	}
	if _, err := f.Write(data); err != nil {
		return fail(fmt.Errorf("failed to write temp file: %w", err))
	}
	if err := f.Sync(); err != nil {
		return fail(fmt.Errorf("failed to sync temp file: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return name, nil
}

// CleanupTemp removes temp files left behind next to path by an
// interrupted write. It returns the number of files removed.
func CleanupTemp(path string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), filepath.Base(path)+tempPattern))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err == nil {
			removed++
		}
	}
	return removed, nil
}

// syncDir flushes a rename in dir to disk. It runs after the rename has
// happened, so failures (an unreadable directory, a platform that cannot
// fsync directories) are not reported.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}
