package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

func TestOTPRateLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "otp@school.test", models.RoleStudent)

	for i := 0; i < 3; i++ {
		require.NoError(t, env.otp.Issue(ctx, user, models.OTPPurposePasswordReset))
	}
	assert.ErrorIs(t, env.otp.Issue(ctx, user, models.OTPPurposePasswordReset), apperrors.ErrTooManyRequests)

	// purposes are limited separately
	assert.NoError(t, env.otp.Issue(ctx, user, models.OTPPurposeEmailVerification))
}

func TestOTPNewCodeReplacesOld(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "replace@school.test", models.RoleStudent)

	require.NoError(t, env.otp.Issue(ctx, user, models.OTPPurposePasswordReset))
	first := env.mailer.code(models.OTPPurposePasswordReset, user.Email)
	require.NoError(t, env.otp.Issue(ctx, user, models.OTPPurposePasswordReset))
	second := env.mailer.code(models.OTPPurposePasswordReset, user.Email)

	if first != second {
		assert.ErrorIs(t, env.otp.Verify(ctx, user.Email, models.OTPPurposePasswordReset, first), apperrors.ErrInvalidOTP)
	}
	assert.NoError(t, env.otp.Verify(ctx, user.Email, models.OTPPurposePasswordReset, second))
}

func TestOTPAttemptsExhausted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "attempts@school.test", models.RoleStudent)

	require.NoError(t, env.otp.Issue(ctx, user, models.OTPPurposeEmailVerification))
	code := env.mailer.code(models.OTPPurposeEmailVerification, user.Email)

	assert.ErrorIs(t, env.otp.Verify(ctx, user.Email, models.OTPPurposeEmailVerification, "wrong1"), apperrors.ErrInvalidOTP)
	assert.ErrorIs(t, env.otp.Verify(ctx, user.Email, models.OTPPurposeEmailVerification, "wrong2"), apperrors.ErrInvalidOTP)
	assert.ErrorIs(t, env.otp.Verify(ctx, user.Email, models.OTPPurposeEmailVerification, "wrong3"), apperrors.ErrOTPAttemptsExceeded)

	assert.ErrorIs(t, env.otp.Verify(ctx, user.Email, models.OTPPurposeEmailVerification, code), apperrors.ErrOTPAttemptsExceeded)
}

func TestOTPConcurrentGuessesShareAttemptBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "parallel@school.test", models.RoleStudent)

	require.NoError(t, env.otp.Issue(ctx, user, models.OTPPurposePasswordReset))
	code := env.mailer.code(models.OTPPurposePasswordReset, user.Email)
	active, err := env.store.OTPCodes().GetLatestActive(ctx, user.Email, models.OTPPurposePasswordReset, time.Now())
	require.NoError(t, err)

	const guesses = 30
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		invalid int
	)
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := env.otp.Verify(ctx, user.Email, models.OTPPurposePasswordReset, "not-the-code")
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, apperrors.ErrInvalidOTP) {
				invalid++
			} else {
				assert.ErrorIs(t, err, apperrors.ErrOTPAttemptsExceeded)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, invalid)
	stored, err := env.store.OTPCodes().GetLatestActive(ctx, user.Email, models.OTPPurposePasswordReset, time.Now())
	require.NoError(t, err)
	assert.Equal(t, active.ID, stored.ID)
	assert.Equal(t, 3, stored.Attempts)

	assert.ErrorIs(t, env.otp.Verify(ctx, user.Email, models.OTPPurposePasswordReset, code), apperrors.ErrOTPAttemptsExceeded)
}

func TestOTPConsumedOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "once@school.test", models.RoleStudent)

	require.NoError(t, env.otp.Issue(ctx, user, models.OTPPurposeEmailVerification))
	code := env.mailer.code(models.OTPPurposeEmailVerification, user.Email)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := env.otp.Verify(ctx, user.Email, models.OTPPurposeEmailVerification, code); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.ErrorIs(t, env.otp.Verify(ctx, user.Email, models.OTPPurposeEmailVerification, code), apperrors.ErrInvalidOTP)
}

func TestOTPRepositoryMarkUsedTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "twice@school.test", models.RoleStudent)

	require.NoError(t, env.otp.Issue(ctx, user, models.OTPPurposeEmailVerification))
	active, err := env.store.OTPCodes().GetLatestActive(ctx, user.Email, models.OTPPurposeEmailVerification, time.Now())
	require.NoError(t, err)

	require.NoError(t, env.store.OTPCodes().MarkUsed(ctx, active.ID, time.Now()))
	assert.ErrorIs(t, env.store.OTPCodes().MarkUsed(ctx, active.ID, time.Now()), apperrors.ErrInvalidOTP)
	_, err = env.store.OTPCodes().ReserveAttempt(ctx, active.ID, 3)
	assert.ErrorIs(t, err, apperrors.ErrOTPAttemptsExceeded)
}
