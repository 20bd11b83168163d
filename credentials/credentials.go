// Package credentials handles password hashing and verification.
package credentials

import (
	"murmur/apperr"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted plaintext password length.
const MinPasswordLength = 8

// ValidatePassword enforces the password policy. Callers run this before
// hashing; the hash itself accepts anything.
func ValidatePassword(plaintext string) error {
	if len(plaintext) < MinPasswordLength {
		return apperr.Validation("Password should be at least 8 characters")
	}
	return nil
}

// HashPassword produces a bcrypt hash with a fresh per-call salt.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies plaintext against a stored hash.
func CheckPassword(plaintext, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); err != nil {
		return apperr.Auth("Incorrect login data")
	}
	return nil
}
