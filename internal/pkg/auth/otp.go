package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// otpCost is lower than BcryptCost: codes are short-lived and attempt-limited
const otpCost = bcrypt.DefaultCost

// GenerateOTP returns a numeric code of the given length
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate otp: %w", err)
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}

// HashOTP hashes a one-time code for storage
func HashOTP(code string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(code), otpCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash otp: %w", err)
	}
	return string(b), nil
}

// CheckOTP compares a stored hash with a submitted code
func CheckOTP(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(code))) == nil
}
