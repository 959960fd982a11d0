package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

func registerStudent(t *testing.T, env *testEnv, email string) *dto.RegisterResponse {
	t.Helper()
	resp, err := env.auth.Register(context.Background(), &dto.RegisterRequest{
		Email:     email,
		Password:  "secret123",
		FirstName: "Juan",
		LastName:  "Dela Cruz",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterCreatesUnverifiedStudentAndSendsCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := registerStudent(t, env, "  Juan@School.Test ")
	assert.Equal(t, "juan@school.test", resp.Email)

	user, err := env.store.Users().GetByID(ctx, resp.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.RoleType)
	assert.False(t, user.EmailVerified)

	student, err := env.store.Students().GetByUserID(ctx, resp.UserID)
	require.NoError(t, err)
	assert.Nil(t, student.StudentNumber)

	assert.NotEmpty(t, env.mailer.code(models.OTPPurposeEmailVerification, "juan@school.test"))
}

func TestRegisterRejectsDuplicateEmailIgnoringCase(t *testing.T) {
	env := newTestEnv(t)
	registerStudent(t, env, "juan@school.test")

	_, err := env.auth.Register(context.Background(), &dto.RegisterRequest{
		Email: "JUAN@school.test", Password: "secret123", FirstName: "J", LastName: "D",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	check, err := env.auth.CheckEmail(context.Background(), "Juan@School.test")
	require.NoError(t, err)
	assert.False(t, check.Available)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.auth.Register(context.Background(), &dto.RegisterRequest{
		Email: "weak@school.test", Password: "lettersonly", FirstName: "W", LastName: "P",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)
}

func TestRegisterSucceedsWhenCodeCannotBeSent(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.otpErr = errors.New("smtp down")

	resp := registerStudent(t, env, "offline@school.test")
	assert.NotZero(t, resp.UserID)
}

func TestVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := registerStudent(t, env, "verify@school.test")

	err := env.auth.VerifyEmail(ctx, &dto.VerifyEmailRequest{Email: "verify@school.test", Code: "abcdef"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)

	code := env.mailer.code(models.OTPPurposeEmailVerification, "verify@school.test")
	require.NoError(t, env.auth.VerifyEmail(ctx, &dto.VerifyEmailRequest{Email: "verify@school.test", Code: code}))

	user, err := env.store.Users().GetByID(ctx, resp.UserID)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)

	err = env.auth.VerifyEmail(ctx, &dto.VerifyEmailRequest{Email: "verify@school.test", Code: code})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyVerified)
	assert.ErrorIs(t, env.auth.ResendVerification(ctx, "verify@school.test"), apperrors.ErrEmailAlreadyVerified)
}

func TestLoginAndRefreshRotation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerStudent(t, env, "login@school.test")

	_, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "login@school.test", Password: "wrong-pass1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "nobody@school.test", Password: "secret123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	login, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "LOGIN@school.test", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", login.Token.TokenType)
	assert.NotEmpty(t, login.Token.AccessToken)
	assert.NotNil(t, login.User.LastLoginAt)

	refreshed, err := env.auth.RefreshToken(ctx, login.Token.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Token.RefreshToken, refreshed.Token.RefreshToken)

	_, err = env.auth.RefreshToken(ctx, login.Token.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	require.NoError(t, env.auth.Logout(ctx, refreshed.Token.RefreshToken))
	_, err = env.auth.RefreshToken(ctx, refreshed.Token.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	assert.NoError(t, env.auth.Logout(ctx, "unknown-token"))
}

func TestLoginDisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := registerStudent(t, env, "disabled@school.test")
	require.NoError(t, env.store.Users().SetActive(ctx, resp.UserID, false))

	_, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "disabled@school.test", Password: "secret123"})
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerStudent(t, env, "reset@school.test")

	login, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "reset@school.test", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, env.auth.ForgotPassword(ctx, "ghost@school.test"), "unknown accounts are not reported")
	require.NoError(t, env.auth.ForgotPassword(ctx, "reset@school.test"))
	code := env.mailer.code(models.OTPPurposePasswordReset, "reset@school.test")
	require.NotEmpty(t, code)

	err = env.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Email: "reset@school.test", Code: code, NewPassword: "newsecret9"})
	require.NoError(t, err)

	_, err = env.auth.RefreshToken(ctx, login.Token.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked, "reset signs out existing sessions")

	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "reset@school.test", Password: "newsecret9"})
	assert.NoError(t, err)

	err = env.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{Email: "reset@school.test", Code: code, NewPassword: "another99"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP, "codes are single use")
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := registerStudent(t, env, "change@school.test")

	err := env.auth.ChangePassword(ctx, resp.UserID, &dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newsecret9"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	require.NoError(t, env.auth.ChangePassword(ctx, resp.UserID, &dto.ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "newsecret9"}))
	_, err = env.auth.Login(ctx, &dto.LoginRequest{Email: "change@school.test", Password: "newsecret9"})
	assert.NoError(t, err)
}

func TestForgotPasswordAnswersAlikeWhenRateLimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerStudent(t, env, "real@school.test")

	for i := 0; i < 6; i++ {
		assert.NoError(t, env.auth.ForgotPassword(ctx, "real@school.test"), "call %d", i+1)
		assert.NoError(t, env.auth.ForgotPassword(ctx, "ghost@school.test"), "call %d", i+1)
	}
}
