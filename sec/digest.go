package sec

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex BLAKE2b-256 checksum of data
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MatchDigest compares data against an expected hex digest, case-insensitively
func MatchDigest(data []byte, expected string) bool {
	return strings.EqualFold(Digest(data), strings.TrimSpace(expected))
}
