// Package vault implements the passvault engine: an encrypted, ordered set
// of (site, username, password) entries protected by one master passphrase.
//
// A Store moves through three states:
//   - Uninitialized: no vault file on disk
//   - Locked: vault file exists, no key in memory
//   - Unlocked: key derived and verified, entries loaded
//
// Every mutation re-encrypts the whole entry set and replaces the vault
// file atomically, so the file on disk is always a complete snapshot.
// Site lookups are case-insensitive; stored sites keep their casing.
//
// A Store is not safe for concurrent use. Other processes are kept out by
// an advisory lock held while the store is unlocked.
package vault
