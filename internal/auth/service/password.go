package service

import (
	"crypto/sha256"
	"fmt"
	"unicode"

	autherror "github.com/fctanu/ClassConnect/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// HashPassword derives a salted one-way hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword compares password against hash in constant time.
// A mismatch returns false, never an error.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashToken hashes a refresh token for storage. The token is pre-hashed with
// SHA-256 because bcrypt only reads the first 72 bytes of its input and a
// signed JWT is longer than that.
func HashToken(token string) (string, error) {
	digest := sha256.Sum256([]byte(token))
	hashed, err := bcrypt.GenerateFromPassword(digest[:], bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hashed), nil
}

// VerifyTokenHash reports whether token matches a stored token hash.
func VerifyTokenHash(token, hash string) bool {
	digest := sha256.Sum256([]byte(token))
	return bcrypt.CompareHashAndPassword([]byte(hash), digest[:]) == nil
}

// ValidatePassword enforces the registration password policy: at least
// 8 characters with one uppercase letter, one lowercase letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", autherror.ErrValidation, minPasswordLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return fmt.Errorf("%w: password must contain an uppercase letter, a lowercase letter and a digit", autherror.ErrValidation)
	}

	return nil
}
