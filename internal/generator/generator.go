// Package generator creates random passwords and diceware passphrases and
// rates password strength.
package generator

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/sethvargo/go-diceware/diceware"
)

const (
	MinLength     = 4
	MaxLength     = 1024
	DefaultLength = 12
	DefaultWords  = 6
	MaxWords      = 64
)

// Character classes
const (
	Lower   = "abcdefghijklmnopqrstuvwxyz"
	Upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Digits  = "0123456789"
	Special = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

var (
	ErrTooLong   = fmt.Errorf("password length must be at most %d", MaxLength)
	ErrWordCount = fmt.Errorf("word count must be between 1 and %d", MaxWords)
)

// Options selects the character classes of a generated password. Lowercase
// letters are always included.
type Options struct {
	Length  int
	Upper   bool
	Digits  bool
	Special bool
}

// DefaultOptions enables every class at DefaultLength
func DefaultOptions() Options {
	return Options{Length: DefaultLength, Upper: true, Digits: true, Special: true}
}

// Generate returns a random password with at least one character of every
// enabled class. Lengths below MinLength are raised to MinLength.
func Generate(length int, upper, digits, special bool) (string, error) {
	return GenerateWith(Options{Length: length, Upper: upper, Digits: digits, Special: special})
}

// GenerateWith is Generate driven by Options
func GenerateWith(opts Options) (string, error) {
	length := max(opts.Length, MinLength)
	if length > MaxLength {
		return "", ErrTooLong
	}

	classes := []string{Lower}
	if opts.Upper {
		classes = append(classes, Upper)
	}
	if opts.Digits {
		classes = append(classes, Digits)
	}
	if opts.Special {
		classes = append(classes, Special)
	}
	charset := strings.Join(classes, "")

	out := make([]byte, 0, length)
	for _, class := range classes {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := pick(charset)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

// Passphrase returns words diceware words joined by dashes
func Passphrase(words int) (string, error) {
	if words < 1 || words > MaxWords {
		return "", ErrWordCount
	}
	list, err := diceware.Generate(words)
	if err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	return strings.Join(list, "-"), nil
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random data: %w", err)
	}
	return int(v.Int64()), nil
}

func pick(set string) (byte, error) {
	if set == "" {
		return 0, errors.New("empty character set")
	}
	i, err := randIndex(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

// shuffle is a Fisher-Yates shuffle driven by crypto/rand
func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
