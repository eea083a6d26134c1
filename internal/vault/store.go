package vault

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/filelock"
	"github.com/illarion/passvault/internal/logging"
	"github.com/illarion/passvault/internal/storage"
)

const (
	DirPermSecure      = 0700 // Directory: owner rwx only
	VaultFilePerm      = 0600 // File: owner rw only
	DefaultHistoryKeep = 20
)

// State of a Store
type State int

const (
	StateUninitialized State = iota
	StateLocked
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Options binds a Store to its files
type Options struct {
	VaultPath string
	SaltPath  string
	// HistoryPath is the snapshot database; empty disables history
	HistoryPath string
	// HistoryKeep is how many snapshots to retain (DefaultHistoryKeep if <= 0)
	HistoryKeep int
	Logger      *slog.Logger
}

// Store manages an encrypted vault file
type Store struct {
	vaultPath   string
	historyPath string
	historyKeep int
	kdf         *crypto.KeyDeriver
	log         *slog.Logger

	enc     *crypto.Encryptor
	lock    *filelock.Lock
	entries []Entry

	// replaced in tests to simulate interrupted writes
	writeFile func(path string, data []byte, perm os.FileMode) error
	now       func() time.Time
}

// New creates a Store bound to the paths in opts. Parent directories are
// created with owner-only permissions; no vault file is touched.
func New(opts Options) (*Store, error) {
	if opts.VaultPath == "" || opts.SaltPath == "" {
		return nil, fmt.Errorf("vault and salt paths are required")
	}

	for _, p := range []string{opts.VaultPath, opts.SaltPath, opts.HistoryPath} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), DirPermSecure); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	keep := opts.HistoryKeep
	if keep <= 0 {
		keep = DefaultHistoryKeep
	}

	return &Store{
		vaultPath:   opts.VaultPath,
		historyPath: opts.HistoryPath,
		historyKeep: keep,
		kdf:         crypto.NewKeyDeriver(opts.SaltPath),
		log:         logger.With("vault", opts.VaultPath),
		writeFile:   storage.WriteFileAtomic,
		now:         func() time.Time { return time.Now().UTC().Round(0) },
	}, nil
}

// Path returns the vault file location
func (s *Store) Path() string {
	return s.vaultPath
}

// Exists reports whether the vault file is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.vaultPath)
	return err == nil
}

// State returns the current state
func (s *Store) State() State {
	switch {
	case s.enc != nil:
		return StateUnlocked
	case s.Exists():
		return StateLocked
	default:
		return StateUninitialized
	}
}

// Initialize creates a new, empty vault protected by passphrase and leaves
// the store unlocked.
func (s *Store) Initialize(passphrase []byte) error {
	if s.enc != nil {
		return ErrAlreadyUnlocked
	}
	if err := s.acquireLock(); err != nil {
		return err
	}

	if s.Exists() {
		s.releaseLock()
		return ErrAlreadyExists
	}
	// An orphaned salt may belong to a vault file that went missing;
	// replacing it would make that vault undecryptable forever
	if s.kdf.SaltExists() {
		s.releaseLock()
		return fmt.Errorf("%w: salt file %s exists without vault file %s", ErrInconsistentState, s.kdf.SaltPath(), s.vaultPath)
	}
	s.cleanupTemp()

	salt, err := s.kdf.GetOrCreateSalt()
	if err != nil {
		s.releaseLock()
		return fmt.Errorf("failed to create salt: %w", err)
	}

	enc, err := crypto.NewEncryptor(s.kdf.DeriveKey(passphrase, salt))
	if err != nil {
		s.releaseLock()
		return err
	}

	entries := make([]Entry, 0)
	if err := s.persist(enc, entries); err != nil {
		enc.Destroy()
		// The salt protects nothing yet; drop it so init can be retried.
		// A vault file that appeared anyway keeps its salt.
		if !s.Exists() {
			if rmErr := os.Remove(s.kdf.SaltPath()); rmErr != nil {
				s.log.Warn("failed to remove salt after failed init", "error", rmErr)
			}
		}
		s.releaseLock()
		return err
	}

	s.enc = enc
	s.entries = entries
	s.log.Debug("vault initialized")
	return nil
}

// Unlock derives the key from passphrase and loads the entries. A wrong
// passphrase and a damaged file both yield an *UnlockError of kind
// FailureAuthentication; on any failure no key is retained.
func (s *Store) Unlock(passphrase []byte) error {
	if s.enc != nil {
		return ErrAlreadyUnlocked
	}
	if !s.Exists() {
		return ErrNotInitialized
	}
	if err := s.acquireLock(); err != nil {
		return err
	}

	enc, entries, err := s.open(passphrase)
	if err != nil {
		s.releaseLock()
		s.log.Debug("unlock failed", "error", err)
		return err
	}
	s.cleanupTemp()

	s.enc = enc
	s.entries = entries
	s.log.Debug("vault unlocked", "entries", len(entries))
	return nil
}

func (s *Store) open(passphrase []byte) (*crypto.Encryptor, []Entry, error) {
	salt, err := s.kdf.LoadSalt()
	if err != nil {
		if errors.Is(err, crypto.ErrSaltNotFound) {
			err = fmt.Errorf("%w: vault file %s has no salt file %s", ErrInconsistentState, s.vaultPath, s.kdf.SaltPath())
		}
		return nil, nil, &UnlockError{Kind: FailureIO, Err: err}
	}

	data, err := os.ReadFile(s.vaultPath)
	if err != nil {
		return nil, nil, &UnlockError{Kind: FailureIO, Err: fmt.Errorf("failed to read vault: %w", err)}
	}

	enc, err := crypto.NewEncryptor(s.kdf.DeriveKey(passphrase, salt))
	if err != nil {
		return nil, nil, &UnlockError{Kind: FailureIO, Err: err}
	}

	entries, err := openVault(enc, data)
	if err != nil {
		enc.Destroy()
		return nil, nil, &UnlockError{Kind: FailureAuthentication, Err: err}
	}
	return enc, entries, nil
}

// Lock discards the key and the decrypted entries and releases the file lock
func (s *Store) Lock() {
	if s.enc != nil {
		s.enc.Destroy()
		s.enc = nil
	}
	for i := range s.entries {
		s.entries[i] = Entry{}
	}
	s.entries = nil
	s.releaseLock()
}

// Close locks the store
func (s *Store) Close() error {
	s.Lock()
	return nil
}

// AddOrUpdate stores a credential for site. An existing entry with the same
// site (case-insensitive) is replaced in place and stamped with the current
// time; otherwise the entry is
// appended. The in-memory entries change only if the vault file was written.
func (s *Store) AddOrUpdate(site, username, password string) error {
	if err := s.requireUnlocked(); err != nil {
		return err
	}

	entry := Entry{
		Site:      site,
		Username:  username,
		Password:  password,
		CreatedAt: s.now(),
	}
	if err := validateEntry(entry); err != nil {
		return err
	}

	next := slices.Clone(s.entries)
	if i := indexOf(next, site); i >= 0 {
		// the site keeps the casing it was first stored with
		entry.Site = next[i].Site
		next[i] = entry
	} else {
		next = append(next, entry)
	}

	return s.commit(next)
}

// Delete removes the entry for site
func (s *Store) Delete(site string) error {
	if err := s.requireUnlocked(); err != nil {
		return err
	}

	i := indexOf(s.entries, site)
	if i < 0 {
		return ErrNotFound
	}

	next := slices.Delete(slices.Clone(s.entries), i, i+1)
	return s.commit(next)
}

// List returns every entry without passwords, in insertion order
func (s *Store) List() ([]Summary, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}

	out := make([]Summary, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.summary()
	}
	return out, nil
}

// Search returns entries whose site contains keyword, ignoring case
func (s *Store) Search(keyword string) ([]Match, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}

	needle := foldSite(keyword)
	matches := make([]Match, 0)
	for i, e := range s.entries {
		if strings.Contains(foldSite(e.Site), needle) {
			matches = append(matches, Match{Index: i, Summary: e.summary()})
		}
	}
	return matches, nil
}

// Password returns the password stored for site
func (s *Store) Password(site string) (string, bool, error) {
	if err := s.requireUnlocked(); err != nil {
		return "", false, err
	}

	i := indexOf(s.entries, site)
	if i < 0 {
		return "", false, nil
	}
	return s.entries[i].Password, true, nil
}

// Find returns the stored entry for site without its password
func (s *Store) Find(site string) (Summary, bool, error) {
	if err := s.requireUnlocked(); err != nil {
		return Summary{}, false, err
	}

	i := indexOf(s.entries, site)
	if i < 0 {
		return Summary{}, false, nil
	}
	return s.entries[i].summary(), true, nil
}

// Has reports whether an entry exists for site
func (s *Store) Has(site string) (bool, error) {
	if err := s.requireUnlocked(); err != nil {
		return false, err
	}
	return indexOf(s.entries, site) >= 0, nil
}

// EntryAt returns the entry at index, as reported by Search
func (s *Store) EntryAt(index int) (Entry, error) {
	if err := s.requireUnlocked(); err != nil {
		return Entry{}, err
	}
	if index < 0 || index >= len(s.entries) {
		return Entry{}, ErrNotFound
	}
	return s.entries[index], nil
}

// Len returns the number of entries
func (s *Store) Len() int {
	return len(s.entries)
}

func (s *Store) requireUnlocked() error {
	if s.enc == nil {
		return ErrLocked
	}
	return nil
}

// commit persists next and, only on success, makes it the current set
func (s *Store) commit(next []Entry) error {
	if err := s.persist(s.enc, next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

// persist encrypts entries and atomically replaces the vault file
func (s *Store) persist(enc *crypto.Encryptor, entries []Entry) error {
	data, err := sealVault(enc, entries)
	if err != nil {
		return err
	}

	if err := s.writeFile(s.vaultPath, data, VaultFilePerm); err != nil {
		if !s.written(data) {
			return fmt.Errorf("failed to write vault: %w", err)
		}
		// every seal uses a fresh nonce, so identical bytes are this write
		s.log.Warn("vault replaced despite write error", "error", err)
	}

	s.recordSnapshot(data)
	return nil
}

// written reports whether the vault file on disk holds exactly data
func (s *Store) written(data []byte) bool {
	onDisk, err := os.ReadFile(s.vaultPath)
	return err == nil && bytes.Equal(onDisk, data)
}

func (s *Store) acquireLock() error {
	if s.lock != nil {
		return nil
	}
	lock, err := filelock.Acquire(s.vaultPath + ".lock")
	if err != nil {
		if errors.Is(err, filelock.ErrLocked) {
			return ErrVaultBusy
		}
		return err
	}
	s.lock = lock
	return nil
}

func (s *Store) releaseLock() {
	if err := s.lock.Release(); err != nil {
		s.log.Warn("failed to release vault lock", "error", err)
	}
	s.lock = nil
}

// cleanupTemp removes leftovers of an interrupted write; the caller holds
// the lock so no other writer can own them
func (s *Store) cleanupTemp() {
	removed, err := storage.CleanupTemp(s.vaultPath)
	if err != nil {
		s.log.Warn("failed to clean up temp files", "error", err)
		return
	}
	if removed > 0 {
		s.log.Info("removed temp files from interrupted write", "count", removed)
	}
}
