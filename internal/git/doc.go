// Package git reports whether vault files are exposed to a git repository.
//
// The vault file is encrypted but the salt sits next to it, so committing
// both hands an attacker everything needed for an offline guessing attack.
// Files should be neither tracked nor unignored.
package git
