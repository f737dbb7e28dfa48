// Package auth provides password hashing and bearer-token signing.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// passwordHashCost is the bcrypt work factor. Fixed at 8 to stay
// compatible with hashes issued by earlier versions of the service.
const passwordHashCost = 8

// HashPassword creates a salted bcrypt hash of the given password.
// The hash differs between calls for the same input; only VerifyPassword
// can check it.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the password matches the stored hash.
// A malformed hash counts as a mismatch, never an error.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
