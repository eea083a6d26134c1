package generator

import (
	"strings"
	"unicode"
)

// Strength is a coarse password rating
type Strength int

const (
	Weak Strength = iota
	Medium
	Strong
)

func (s Strength) String() string {
	switch s {
	case Weak:
		return "Weak"
	case Medium:
		return "Medium"
	case Strong:
		return "Strong"
	default:
		return "Unknown"
	}
}

// StrengthOf scores one point each for length >= 8, length >= 12, and the
// presence of lowercase, uppercase, digit and special characters. Up to 2
// points is Weak, up to 4 Medium, more is Strong.
func StrengthOf(password string) Strength {
	score := 0
	n := len([]rune(password))
	if n >= 8 {
		score++
	}
	if n >= 12 {
		score++
	}
	if strings.IndexFunc(password, unicode.IsLower) >= 0 {
		score++
	}
	if strings.IndexFunc(password, unicode.IsUpper) >= 0 {
		score++
	}
	if strings.IndexFunc(password, unicode.IsDigit) >= 0 {
		score++
	}
	if strings.ContainsAny(password, Special) {
		score++
	}

	switch {
	case score <= 2:
		return Weak
	case score <= 4:
		return Medium
	default:
		return Strong
	}
}
