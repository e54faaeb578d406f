package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex returns the lowercase hex SHA-256 digest of a raw payload.
func Sha256Hex(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
