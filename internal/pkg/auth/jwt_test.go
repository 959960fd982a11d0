package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/app/models"
)

func newTestJWTService() *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "jwt-secret",
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "schoolportal",
	})
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	svc := newTestJWTService()
	user := &models.User{ID: 9, Email: "teacher@school.test", RoleType: models.RoleTeacher}

	pair, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := svc.ValidateAndExtractClaims(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(9), claims.UserID)
	assert.Equal(t, "teacher@school.test", claims.Email)
	assert.Equal(t, string(models.RoleTeacher), claims.RoleType)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := newTestJWTService()
	user := &models.User{ID: 9, Email: "teacher@school.test", RoleType: models.RoleTeacher}

	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.ValidateToken(old.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	foreign := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Minute, TokenIssuer: "schoolportal"})
	pair, err := foreign.GenerateTokenPair(user)
	require.NoError(t, err)
	_, err = svc.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherIssuer := NewJWTService(JWTConfig{SecretKey: "jwt-secret", AccessTokenExp: time.Minute, TokenIssuer: "elsewhere"})
	pair, err = otherIssuer.GenerateTokenPair(user)
	require.NoError(t, err)
	_, err = svc.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	_, err = svc.ValidateAndExtractClaims("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer aaa.bbb.ccc")
	require.NoError(t, err)
	assert.Equal(t, "aaa.bbb.ccc", token)

	token, err = ExtractBearerToken(`"aaa.bbb.ccc"`)
	require.NoError(t, err)
	assert.Equal(t, "aaa.bbb.ccc", token)

	for _, bad := range []string{"", "Bearer ", "Bearer abc", "Basic dXNlcjpwYXNz"} {
		_, err := ExtractBearerToken(bad)
		assert.ErrorIs(t, err, ErrInvalidFormat, bad)
	}
}
