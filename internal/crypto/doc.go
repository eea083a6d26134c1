// Package crypto provides key derivation and authenticated encryption for
// passvault.
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 16-byte random salt kept in its own file, created once per vault
//   - 210,000 iterations (OWASP recommendation, well above 100,000)
//   - 32-byte output used directly as the AES-256 key
//
// Encryption uses AES-256-GCM with:
//   - 12-byte random nonce per encryption, prepended to the ciphertext
//   - caller supplied additional data (the vault file header)
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
