package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// ContentHash returns the hex-encoded SHA-256 digest of a file's current
// contents. Shared by the delta detector (file-hash state) and the insight
// lifecycle's file-hash anchoring (internal/memory), so both agree on what
// "the file changed" means.
func ContentHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ContentHashBytes(data), nil
}

// ContentHashBytes hashes raw bytes directly, for chunk bodies that are
// already in memory.
func ContentHashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
