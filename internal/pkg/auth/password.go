package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost used for password hashes
const BcryptCost = 12

// PasswordMinLength is the minimum accepted password length
const PasswordMinLength = 8

// HashPassword hashes a plaintext password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password
func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// ValidatePasswordStrength requires a minimum length, one letter and one digit
func ValidatePasswordStrength(password string) error {
	if len(password) < PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters long", PasswordMinLength)
	}

	var hasLetter, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("password must contain at least one letter")
	}
	if !hasDigit {
		return fmt.Errorf("password must contain at least one digit")
	}
	return nil
}

const tempPasswordChars = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateTemporaryPassword returns a random password that passes ValidatePasswordStrength
func GenerateTemporaryPassword(length int) (string, error) {
	if length < PasswordMinLength {
		length = PasswordMinLength
	}
	for {
		result := make([]byte, length)
		for i := range result {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tempPasswordChars))))
			if err != nil {
				return "", fmt.Errorf("failed to generate password: %w", err)
			}
			result[i] = tempPasswordChars[n.Int64()]
		}
		if ValidatePasswordStrength(string(result)) == nil {
			return string(result), nil
		}
	}
}
