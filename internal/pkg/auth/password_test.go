package auth

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "secret123", ""},
		{"unicode letters count", "contraseña1", ""},
		{"too short", "abc12", "at least 8 characters"},
		{"no digit", "abcdefghij", "one digit"},
		{"no letter", "1234567890", "one letter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "secret124"))
	assert.False(t, CheckPassword("not-a-hash", "secret123"))
}

func TestGenerateTemporaryPassword(t *testing.T) {
	pwd, err := GenerateTemporaryPassword(4)
	require.NoError(t, err)
	assert.Len(t, pwd, PasswordMinLength)
	assert.NoError(t, ValidatePasswordStrength(pwd))

	pwd, err = GenerateTemporaryPassword(16)
	require.NoError(t, err)
	assert.Len(t, pwd, 16)
	assert.NotRegexp(t, regexp.MustCompile(`[01lIoO]`), pwd)
}

func TestGenerateOTP(t *testing.T) {
	digits := regexp.MustCompile(`^[0-9]+$`)
	for _, length := range []int{4, 6, 8} {
		code, err := GenerateOTP(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		assert.Regexp(t, digits, code)
	}

	code, err := GenerateOTP(0)
	require.NoError(t, err)
	assert.Len(t, code, 6)
}

func TestHashAndCheckOTP(t *testing.T) {
	hash, err := HashOTP("123456")
	require.NoError(t, err)
	assert.True(t, CheckOTP(hash, "123456"))
	assert.True(t, CheckOTP(hash, " 123456\n"))
	assert.False(t, CheckOTP(hash, "654321"))
}
