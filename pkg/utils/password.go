package utils

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 16
	keyLength  = 64
	iterations = 10000
)

// HashPassword derives a PBKDF2-HMAC-SHA512 digest with a fresh random salt.
// Both values are hex encoded, the same layout the users collection has
// always stored.
func HashPassword(password string) (digest, salt string, err error) {
	raw := make([]byte, saltLength)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	salt = hex.EncodeToString(raw)
	return derive(password, salt), salt, nil
}

// VerifyPassword re-derives the digest for password and compares it in
// constant time.
func VerifyPassword(password, digest, salt string) bool {
	if digest == "" || salt == "" {
		return false
	}
	computed := derive(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// The salt is used as its hex text, not the decoded bytes.
func derive(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, keyLength, sha512.New)
	return hex.EncodeToString(key)
}
