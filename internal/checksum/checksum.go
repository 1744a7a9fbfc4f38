// Package checksum computes content digests used for asset deduplication
// and source-change detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher is the content-digest port. Implementations must return a stable,
// fixed-length hex string for identical input bytes.
type Hasher interface {
	Sum(data []byte) string
}

// SHA256 implements Hasher with hex-encoded SHA-256.
type SHA256 struct{}

// Sum returns the hex-encoded SHA-256 digest of data.
func (SHA256) Sum(data []byte) string {
	return Sum(data)
}

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 characters of a digest, for log output.
func Short(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}
