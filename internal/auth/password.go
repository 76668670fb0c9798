package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassword returns the hex sha256 digest of the raw password. The digest
// is unsalted so hashes stay interchangeable with the legacy credential
// data; treat this as a weak default, not a recommendation.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CheckPasswordHash reports whether the password digests to storedHash.
func CheckPasswordHash(password, storedHash string) bool {
	computed := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
