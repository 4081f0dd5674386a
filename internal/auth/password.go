// Package auth authenticates users against dim_user and carries the
// resulting session through a request.
//
// Passwords are stored as an unsalted SHA-256 hex digest. That matches the
// existing user data but is not a secure password scheme: there is no salt,
// no work factor and no rate limit. Keep the tool on trusted networks.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashPassword returns the stored form of a plaintext password.
func HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// CheckPassword reports whether plain hashes to stored. The comparison runs
// in constant time.
func CheckPassword(stored, plain string) bool {
	got := HashPassword(plain)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(got)) == 1
}
