// Package storage provides the persistence primitives for passvault.
//
// Vault and salt files are written with WriteFileAtomic / CreateFileExclusive:
// data goes to a temp file in the same directory, is synced, and is then
// renamed (or linked) into place. A crash leaves the previous file intact.
//
// The history database is a BBolt file with two buckets:
//   - config: format version, vault ID, created/modified timestamps
//   - snapshots: previous vault files keyed by a big-endian sequence number
//
// Snapshots hold the already encrypted vault bytes, so the database never
// contains plaintext. BBolt provides ACID transactions and file locking.
package storage
