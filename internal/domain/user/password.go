package user

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskhive/taskhive/internal/domain/errs"
)

// MinPasswordLength is the minimum accepted plaintext password length.
const MinPasswordLength = 7

// forbiddenPasswordSubstring rejects the most guessable password family.
const forbiddenPasswordSubstring = "password"

// ValidatePassword checks the plaintext password rules: minimum length and
// the "password" substring ban (case-insensitive).
func ValidatePassword(plaintext string) error {
	if len(plaintext) < MinPasswordLength {
		return errs.ErrInvalidInput
	}
	if strings.Contains(strings.ToLower(plaintext), forbiddenPasswordSubstring) {
		return errs.ErrInvalidInput
	}
	return nil
}

// HashPassword produces a salted bcrypt digest. The digest is one-way and can
// only be checked via VerifyPassword.
func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// VerifyPassword reports whether plaintext matches the stored digest.
func VerifyPassword(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
