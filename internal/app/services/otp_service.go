package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/auth"
	"github.com/yigit/schoolportal/internal/pkg/email"
)

// OTPSettings control one-time code issuance and verification
type OTPSettings struct {
	Length        int
	TTL           time.Duration
	MaxAttempts   int
	MaxRequests   int
	RequestWindow time.Duration
}

// OTPService issues and checks hashed one-time codes
type OTPService struct {
	repo     repositories.IOTPRepository
	mailer   email.EmailService
	settings OTPSettings
	logger   zerolog.Logger
	now      func() time.Time
}

// NewOTPService creates a new OTPService
func NewOTPService(repo repositories.IOTPRepository, mailer email.EmailService, settings OTPSettings, logger zerolog.Logger) *OTPService {
	return &OTPService{
		repo:     repo,
		mailer:   mailer,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// Issue creates a fresh code for user and e-mails it. Older unused codes stop working.
func (s *OTPService) Issue(ctx context.Context, user *models.User, purpose models.OTPPurpose) error {
	now := s.now()

	issued, err := s.repo.CountSince(ctx, user.Email, purpose, now.Add(-s.settings.RequestWindow))
	if err != nil {
		return fmt.Errorf("failed to check otp rate limit: %w", err)
	}
	if issued >= s.settings.MaxRequests {
		s.logger.Warn().Int64("userID", user.ID).Str("purpose", string(purpose)).Msg("OTP request rate limit reached")
		return apperrors.ErrTooManyRequests
	}

	code, err := auth.GenerateOTP(s.settings.Length)
	if err != nil {
		return err
	}
	hash, err := auth.HashOTP(code)
	if err != nil {
		return err
	}

	if err := s.repo.InvalidateActive(ctx, user.Email, purpose, now); err != nil {
		return fmt.Errorf("failed to invalidate previous codes: %w", err)
	}
	if err := s.repo.Create(ctx, &models.OTPCode{
		Email:     user.Email,
		Purpose:   purpose,
		CodeHash:  hash,
		ExpiresAt: now.Add(s.settings.TTL),
		CreatedAt: now,
	}); err != nil {
		return err
	}

	if err := s.mailer.SendOTPEmail(ctx, user.Email, user.FullName(), code, string(purpose), s.settings.TTL); err != nil {
		return fmt.Errorf("failed to send one-time code: %w", err)
	}
	s.logger.Info().Int64("userID", user.ID).Str("purpose", string(purpose)).Msg("One-time code issued")
	return nil
}

// Verify consumes the latest active code when it matches. The attempt is
// counted before the hash comparison so parallel guesses share one budget.
func (s *OTPService) Verify(ctx context.Context, emailAddr string, purpose models.OTPPurpose, code string) error {
	otp, err := s.repo.GetLatestActive(ctx, emailAddr, purpose, s.now())
	if err != nil {
		return err
	}
	attempts, err := s.repo.ReserveAttempt(ctx, otp.ID, s.settings.MaxAttempts)
	if err != nil {
		return err
	}

	if !auth.CheckOTP(otp.CodeHash, code) {
		if attempts >= s.settings.MaxAttempts {
			return apperrors.ErrOTPAttemptsExceeded
		}
		return apperrors.ErrInvalidOTP
	}

	return s.repo.MarkUsed(ctx, otp.ID, s.now())
}

// Cleanup removes expired codes
func (s *OTPService) Cleanup(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
