package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/illarion/passvault/internal/storage"
)

// HistoryEnabled reports whether snapshots are recorded
func (s *Store) HistoryEnabled() bool {
	return s.historyPath != ""
}

func (s *Store) openHistory() (*storage.History, error) {
	if s.historyPath == "" {
		return nil, ErrHistoryDisabled
	}
	return storage.OpenHistory(s.historyPath)
}

// recordSnapshot appends a written vault file to the history and prunes
// old snapshots. Failures are logged; the vault file is already durable.
func (s *Store) recordSnapshot(data []byte) {
	if s.historyPath == "" {
		return
	}

	h, err := s.openHistory()
	if err != nil {
		s.log.Warn("failed to open history", "error", err)
		return
	}
	defer h.Close()

	seq, err := h.Append(data)
	if err != nil {
		s.log.Warn("failed to record snapshot", "error", err)
		return
	}
	pruned, err := h.Prune(s.historyKeep)
	if err != nil {
		s.log.Warn("failed to prune history", "error", err)
		return
	}
	s.log.Debug("snapshot recorded", "seq", seq, "pruned", pruned)
}

// VaultID returns a stable identifier for this vault. It is kept in the
// history database; without history it is derived from the salt.
func (s *Store) VaultID() (string, error) {
	if s.historyPath != "" {
		h, err := s.openHistory()
		if err != nil {
			return "", err
		}
		defer h.Close()
		return h.GetOrCreateVaultID()
	}

	salt, err := s.kdf.LoadSalt()
	if err != nil {
		return "", fmt.Errorf("failed to load salt: %w", err)
	}
	sum := sha256.Sum256(append([]byte("passvault-id:"), salt...))
	return hex.EncodeToString(sum[:16]), nil
}

// HistoryStats reports how many snapshots exist and when the last one was
// recorded. The time is zero when there are none.
func (s *Store) HistoryStats() (int, time.Time, error) {
	h, err := s.openHistory()
	if err != nil {
		return 0, time.Time{}, err
	}
	defer h.Close()

	count, err := h.Count()
	if err != nil || count == 0 {
		return 0, time.Time{}, err
	}
	modified, err := h.GetModified()
	if err != nil {
		return 0, time.Time{}, err
	}
	return count, modified, nil
}

// Snapshots lists recorded snapshots, oldest first, without their data
func (s *Store) Snapshots() ([]storage.Snapshot, error) {
	h, err := s.openHistory()
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return h.List()
}

// loadSnapshot fetches and decrypts a snapshot with the current key
func (s *Store) loadSnapshot(seq uint64) ([]Entry, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}

	h, err := s.openHistory()
	if err != nil {
		return nil, err
	}
	defer h.Close()

	snap, err := h.Get(seq)
	if err != nil {
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			return nil, fmt.Errorf("%w: snapshot %d", ErrNotFound, seq)
		}
		return nil, err
	}

	entries, err := openVault(s.enc, snap.Data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %d cannot be opened with the current key: %w", seq, err)
	}
	return entries, nil
}

// Restore replaces the vault contents with snapshot seq. The restored set
// is written like any other change, so it becomes a snapshot itself.
func (s *Store) Restore(seq uint64) error {
	entries, err := s.loadSnapshot(seq)
	if err != nil {
		return err
	}
	if err := s.commit(entries); err != nil {
		return err
	}
	s.log.Debug("snapshot restored", "seq", seq, "entries", len(entries))
	return nil
}

// DiffSnapshot renders the changes between snapshot seq and the current
// entries as a unified diff. Passwords never appear in the output.
func (s *Store) DiffSnapshot(seq uint64) (string, error) {
	old, err := s.loadSnapshot(seq)
	if err != nil {
		return "", err
	}
	return diffEntries(fmt.Sprintf("snapshot-%d", seq), "current", old, s.entries), nil
}

// CompactHistory rewrites the history database to reclaim free pages
func (s *Store) CompactHistory() error {
	h, err := s.openHistory()
	if err != nil {
		return err
	}
	defer h.Close()
	return h.Compact()
}
