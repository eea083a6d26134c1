package crypto

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) []byte {
	t.Helper()
	key, err := GenerateRandom(KeySize)
	require.NoError(t, err)
	return key
}

func TestEncryptDecrypt(t *testing.T) {
	enc, err := NewEncryptor(newTestKey(t))
	require.NoError(t, err)
	defer enc.Destroy()

	aad := []byte("PVLT\x01")
	plaintext := []byte(`[{"site":"github.com"}]`)

	ciphertext, err := enc.Encrypt(plaintext, aad)
	require.NoError(t, err)
	assert.Len(t, ciphertext, NonceSize+len(plaintext)+TagSize)
	assert.False(t, bytes.Contains(ciphertext, []byte("github.com")))

	got, err := enc.Decrypt(ciphertext, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	enc, err := NewEncryptor(newTestKey(t))
	require.NoError(t, err)

	a, err := enc.Encrypt([]byte("same"), nil)
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, a[:NonceSize], b[:NonceSize])
	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsTampering(t *testing.T) {
	enc, err := NewEncryptor(newTestKey(t))
	require.NoError(t, err)
	aad := []byte("header")

	ciphertext, err := enc.Encrypt([]byte("secret payload"), aad)
	require.NoError(t, err)

	t.Run("flipped byte", func(t *testing.T) {
		bad := append([]byte(nil), ciphertext...)
		bad[len(bad)-1] ^= 0x01
		_, err := enc.Decrypt(bad, aad)
		assert.ErrorIs(t, err, ErrAuthFailed)
	})

	t.Run("different aad", func(t *testing.T) {
		_, err := enc.Decrypt(ciphertext, []byte("other"))
		assert.ErrorIs(t, err, ErrAuthFailed)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewEncryptor(newTestKey(t))
		require.NoError(t, err)
		_, err = other.Decrypt(ciphertext, aad)
		assert.ErrorIs(t, err, ErrAuthFailed)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := enc.Decrypt(ciphertext[:NonceSize+TagSize-1], aad)
		assert.ErrorIs(t, err, ErrInvalidCiphertext)
	})
}

func TestNewEncryptorRejectsShortKey(t *testing.T) {
	_, err := NewEncryptor(make([]byte, 16))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDestroyClearsKey(t *testing.T) {
	key := newTestKey(t)
	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	enc.Destroy()
	assert.Equal(t, make([]byte, KeySize), key)
}

func TestGetOrCreateSalt(t *testing.T) {
	dir := t.TempDir()
	kd := NewKeyDeriver(filepath.Join(dir, "salt.key"))

	assert.False(t, kd.SaltExists())
	_, err := kd.LoadSalt()
	assert.ErrorIs(t, err, ErrSaltNotFound)

	salt, err := kd.GetOrCreateSalt()
	require.NoError(t, err)
	assert.Len(t, salt, SaltSize)
	assert.True(t, kd.SaltExists())

	again, err := kd.GetOrCreateSalt()
	require.NoError(t, err)
	assert.Equal(t, salt, again, "salt must not change once created")

	raw, err := os.ReadFile(kd.SaltPath())
	require.NoError(t, err)
	assert.Equal(t, salt, raw, "salt file holds the raw bytes")

	info, err := os.Stat(kd.SaltPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(SaltFilePerm), info.Mode().Perm())
}

func TestLoadSaltRejectsWrongLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salt.key")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0600))

	kd := NewKeyDeriver(path)
	_, err := kd.GetOrCreateSalt()
	assert.ErrorIs(t, err, ErrInvalidSalt)

	// The bad file is left alone rather than replaced
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("short"), raw)
}

func TestDeriveKey(t *testing.T) {
	kd := NewKeyDeriver(filepath.Join(t.TempDir(), "salt.key"))
	salt := bytes.Repeat([]byte{7}, SaltSize)

	key1 := kd.DeriveKey([]byte("correct-horse"), salt)
	key2 := kd.DeriveKey([]byte("correct-horse"), salt)
	assert.Len(t, key1, KeySize)
	assert.Equal(t, key1, key2, "same inputs must produce the same key")

	other := kd.DeriveKey([]byte("correct-horsf"), salt)
	assert.NotEqual(t, key1, other)

	otherSalt := kd.DeriveKey([]byte("correct-horse"), bytes.Repeat([]byte{8}, SaltSize))
	assert.NotEqual(t, key1, otherSalt)
}

func TestIterationsAboveFloor(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultIters, 100000)
}
