package fsutil

import (
	"crypto/sha256"
	"fmt"
)

// Checksum returns the SHA-256 digest of data as a 64-character lowercase
// hex string.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}

// VerifyChecksum reports whether data hashes to digest.
func VerifyChecksum(data []byte, digest string) bool {
	return Checksum(data) == digest
}
