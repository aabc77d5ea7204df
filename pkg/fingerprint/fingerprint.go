// Package fingerprint content-addresses text for the generation caches.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a fingerprint in hex characters.
const Size = sha256.Size * 2

// Of returns the SHA-256 hex digest of text. The digest depends only on the
// UTF-8 bytes of text.
func Of(text string) string {
	return OfBytes([]byte(text))
}

// OfBytes returns the SHA-256 hex digest of data.
func OfBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
