package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket    = []byte("config")    // version, vault ID, timestamps
	SnapshotsBucket = []byte("snapshots") // seq -> Snapshot
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigVaultID  = []byte("vault_id")
)

const (
	HistoryFilePerm = 0600
	openTimeout     = time.Second
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrHistoryBusy      = errors.New("history database is in use by another process")
	ErrHistoryClosed    = errors.New("history database is closed")
)

// Snapshot is one saved copy of the encrypted vault file
type Snapshot struct {
	Seq     uint64    `json:"seq"`
	SavedAt time.Time `json:"saved_at"`
	Size    int       `json:"size"`
	Data    []byte    `json:"data,omitempty"`
}

// History provides BBolt-based snapshot storage
type History struct {
	db *bolt.DB
}

// OpenHistory opens or creates a history database
func OpenHistory(path string) (*History, error) {
	db, err := bolt.Open(path, HistoryFilePerm, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, ErrHistoryBusy
		}
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	h := &History{db: db}
	if err := h.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// Close closes the database. It is safe after a failed Compact left no
// open handle.
func (h *History) Close() error {
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

// initialize creates the bucket structure if missing
func (h *History) initialize() error {
	return h.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, SnapshotsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}
		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (h *History) GetOrCreateVaultID() (string, error) {
	var vaultID string
	err := h.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if data := config.Get(ConfigVaultID); data != nil {
			vaultID = string(data)
			return nil
		}
		vaultID = uuid.NewString()
		return config.Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", err
	}
	return vaultID, nil
}

// GetModified retrieves the time of the last appended snapshot
func (h *History) GetModified() (time.Time, error) {
	var modified time.Time
	err := h.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigBucket).Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// Count returns the number of stored snapshots
func (h *History) Count() (int, error) {
	var n int
	err := h.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(SnapshotsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Append stores data as the newest snapshot and returns its sequence number
func (h *History) Append(data []byte) (uint64, error) {
	var seq uint64
	err := h.db.Update(func(tx *bolt.Tx) error {
		snapshots := tx.Bucket(SnapshotsBucket)
		next, err := snapshots.NextSequence()
		if err != nil {
			return err
		}
		seq = next

		now := time.Now()
		raw, err := json.Marshal(Snapshot{
			Seq:     seq,
			SavedAt: now,
			Size:    len(data),
			Data:    data,
		})
		if err != nil {
			return err
		}
		if err := snapshots.Put(seqKey(seq), raw); err != nil {
			return err
		}

		modified, _ := now.MarshalBinary()
		return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
	})
	return seq, err
}

// List returns all snapshots, oldest first, without their data
func (h *History) List() ([]Snapshot, error) {
	snapshots := make([]Snapshot, 0)
	err := h.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(SnapshotsBucket).ForEach(func(k, v []byte) error {
			var s Snapshot
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("snapshot %d is corrupt: %w", binary.BigEndian.Uint64(k), err)
			}
			s.Data = nil
			snapshots = append(snapshots, s)
			return nil
		})
	})
	return snapshots, err
}

// Get returns a single snapshot including its data
func (h *History) Get(seq uint64) (*Snapshot, error) {
	var snapshot *Snapshot
	err := h.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(SnapshotsBucket).Get(seqKey(seq))
		if raw == nil {
			return ErrSnapshotNotFound
		}
		// Unmarshal copies, so the slice does not outlive the transaction
		snapshot = &Snapshot{}
		return json.Unmarshal(raw, snapshot)
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Prune deletes the oldest snapshots so that at most keep remain.
// It returns how many were removed.
func (h *History) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	removed := 0
	err := h.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(SnapshotsBucket)
		excess := b.Stats().KeyN - keep
		if excess <= 0 {
			return nil
		}
		// Collect first; deleting under a live cursor skips keys
		var stale [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after pruning snapshots.
func (h *History) Compact() error {
	if h.db == nil {
		return ErrHistoryClosed
	}
	srcPath := h.db.Path()
	tmpPath := srcPath + ".compact"

	// Create new database
	dst, err := bolt.Open(tmpPath, HistoryFilePerm, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets, keeping the snapshot sequence
	err = h.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				if err := dstBucket.SetSequence(srcBucket.Sequence()); err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := h.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}
	h.db = nil

	// Atomic replace
	renameErr := os.Rename(tmpPath, srcPath)
	if renameErr != nil {
		os.Remove(tmpPath)
	}

	// Reopen the result, or the untouched original if the rename failed
	db, err := bolt.Open(srcPath, HistoryFilePerm, &bolt.Options{Timeout: openTimeout})
	if err == nil {
		h.db = db
	}
	switch {
	case renameErr != nil:
		return fmt.Errorf("failed to replace database: %w", renameErr)
	case err != nil:
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	return nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
