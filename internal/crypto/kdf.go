package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/storage"
	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 16     // Salt size in bytes
	DefaultIters = 210000 // PBKDF2 iterations (OWASP recommendation)
	SaltFilePerm = 0600
)

var (
	ErrSaltNotFound = errors.New("salt file not found")
	ErrInvalidSalt  = errors.New("salt file has invalid length")
)

// KeyDeriver turns a master passphrase into an encryption key using a
// salt persisted at a fixed path.
type KeyDeriver struct {
	saltPath   string
	iterations int
}

// NewKeyDeriver creates a KeyDeriver bound to saltPath
func NewKeyDeriver(saltPath string) *KeyDeriver {
	return &KeyDeriver{
		saltPath:   saltPath,
		iterations: DefaultIters,
	}
}

// SaltPath returns the location of the salt file
func (k *KeyDeriver) SaltPath() string {
	return k.saltPath
}

// SaltExists reports whether the salt file is present
func (k *KeyDeriver) SaltExists() bool {
	_, err := os.Stat(k.saltPath)
	return err == nil
}

// LoadSalt reads the existing salt without ever creating one
func (k *KeyDeriver) LoadSalt() ([]byte, error) {
	salt, err := os.ReadFile(k.saltPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSaltNotFound
		}
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSalt, len(salt), SaltSize)
	}
	return salt, nil
}

// GetOrCreateSalt returns the persisted salt, generating and writing a new
// one if none exists. Once written the salt never changes.
func (k *KeyDeriver) GetOrCreateSalt() ([]byte, error) {
	salt, err := k.LoadSalt()
	if err == nil || !errors.Is(err, ErrSaltNotFound) {
		return salt, err
	}

	salt, err = GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	if err := storage.CreateFileExclusive(k.saltPath, salt, SaltFilePerm); err != nil {
		if errors.Is(err, os.ErrExist) {
			// Another writer won the race; use its salt
			return k.LoadSalt()
		}
		return nil, fmt.Errorf("failed to write salt: %w", err)
	}

	return salt, nil
}

// DeriveKey derives a 32-byte key from passphrase and salt
func (k *KeyDeriver) DeriveKey(passphrase, salt []byte) []byte {
	return DeriveKey(passphrase, salt, k.iterations)
}

// DeriveKey applies PBKDF2-HMAC-SHA256 with the given iteration count
func DeriveKey(passphrase, salt []byte, iterations int) []byte {
	return pbkdf2.Key(passphrase, salt, iterations, KeySize, sha256.New)
}
