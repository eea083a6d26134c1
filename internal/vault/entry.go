package vault

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"github.com/illarion/passvault/internal/crypto"
)

const (
	MaxSiteLength     = 255
	MaxUsernameLength = 255
	MaxPasswordLength = 4096
)

// File header: magic followed by a format version. It is bound to the
// ciphertext as additional authenticated data.
const (
	fileMagic   = "PVLT"
	fileVersion = 0x01
)

var fileHeader = append([]byte(fileMagic), fileVersion)

var errBadHeader = errors.New("unrecognized vault file header")

// Entry is one stored credential. Field order is the serialization order.
type Entry struct {
	Site      string    `json:"site" validate:"required,max=255"`
	Username  string    `json:"username" validate:"required,max=255"`
	Password  string    `json:"password" validate:"required,max=4096"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is an Entry without its password
type Summary struct {
	Site      string
	Username  string
	CreatedAt time.Time
}

// Match is a search hit; Index is the entry's position in the vault
type Match struct {
	Index int
	Summary
}

func (e Entry) summary() Summary {
	return Summary{Site: e.Site, Username: e.Username, CreatedAt: e.CreatedAt}
}

var validate = validator.New()

// validateEntry rejects blank or oversized fields
func validateEntry(e Entry) error {
	if e.Site != "" && strings.TrimSpace(e.Site) == "" {
		return &ValidationError{Field: "site", Reason: "must not be blank"}
	}
	if e.Username != "" && strings.TrimSpace(e.Username) == "" {
		return &ValidationError{Field: "username", Reason: "must not be blank"}
	}

	err := validate.Struct(e)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("vault: validation error: %w", err)
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Reason: "is required"}
	case "max":
		return &ValidationError{Field: field, Reason: "must be at most " + fe.Param() + " characters"}
	default:
		return &ValidationError{Field: field, Reason: "failed " + fe.Tag() + " check"}
	}
}

// foldSite maps a site to its case-insensitive identity using full Unicode
// case folding, so "STRASSE" and "straße" name the same site
func foldSite(site string) string {
	return cases.Fold().String(site)
}

// indexOf finds site case-insensitively, -1 if absent
func indexOf(entries []Entry, site string) int {
	key := foldSite(site)
	for i := range entries {
		if foldSite(entries[i].Site) == key {
			return i
		}
	}
	return -1
}

// encodeEntries serializes the entry set as a JSON array
func encodeEntries(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

func decodeEntries(data []byte) ([]Entry, error) {
	entries := make([]Entry, 0)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}
	return entries, nil
}

// sealVault produces the complete vault file for entries
func sealVault(enc *crypto.Encryptor, entries []Entry) ([]byte, error) {
	plaintext, err := encodeEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entries: %w", err)
	}
	defer crypto.ClearBytes(plaintext)

	ciphertext, err := enc.Encrypt(plaintext, fileHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt vault: %w", err)
	}

	out := make([]byte, 0, len(fileHeader)+len(ciphertext))
	out = append(out, fileHeader...)
	return append(out, ciphertext...), nil
}

// openVault authenticates and decodes a vault file
func openVault(enc *crypto.Encryptor, data []byte) ([]Entry, error) {
	if len(data) < len(fileHeader) || !bytes.Equal(data[:len(fileHeader)], fileHeader) {
		return nil, errBadHeader
	}

	plaintext, err := enc.Decrypt(data[len(fileHeader):], fileHeader)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(plaintext)

	return decodeEntries(plaintext)
}
