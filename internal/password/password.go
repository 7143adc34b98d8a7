// Package password turns plaintext credentials into the hex digests stored in
// users.password_hash.
//
// The digest is an unsalted SHA-256, kept for compatibility with databases
// created by earlier releases. Equal passwords therefore produce equal digests.
package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// DigestLen is the width of every digest returned by Hash.
const DigestLen = sha256.Size * 2

// Hash returns the lowercase hex SHA-256 digest of plaintext.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether plaintext hashes to digest.
func Matches(digest, plaintext string) bool {
	return subtle.ConstantTimeCompare([]byte(digest), []byte(Hash(plaintext))) == 1
}
