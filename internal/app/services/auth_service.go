package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/db"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/auth"
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo    repositories.IUserRepository
	studentRepo repositories.IStudentRepository
	tokenRepo   repositories.ITokenRepository
	otp         *OTPService
	tx          db.TxManager
	jwtService  *auth.JWTService
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.IUserRepository,
	studentRepo repositories.IStudentRepository,
	tokenRepo repositories.ITokenRepository,
	otp *OTPService,
	tx db.TxManager,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		studentRepo: studentRepo,
		tokenRepo:   tokenRepo,
		otp:         otp,
		tx:          tx,
		jwtService:  jwtService,
		logger:      logger,
		now:         time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func passwordError(err error) error {
	return &apperrors.CustomError{Err: apperrors.ErrInvalidPassword, Message: err.Error()}
}

// Register creates an unverified student account with an empty profile and
// sends the verification code
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, passwordError(err)
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:     normalizeEmail(req.Email),
		Password:  hashedPassword,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		RoleType:  models.RoleStudent,
		IsActive:  true,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.userRepo.EmailExists(ctx, user.Email)
		if err != nil {
			return fmt.Errorf("error checking if email exists: %w", err)
		}
		if exists {
			return apperrors.ErrEmailAlreadyExists
		}
		if _, err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		_, err = s.studentRepo.Create(ctx, &models.Student{UserID: user.ID})
		return err
	})
	if err != nil {
		return nil, err
	}

	// The account exists either way; a failed send can be retried via resend.
	if err := s.otp.Issue(ctx, user, models.OTPPurposeEmailVerification); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Could not send verification code after registration")
	}

	s.logger.Info().Int64("userID", user.ID).Msg("Student registered")
	return &dto.RegisterResponse{
		UserID:  user.ID,
		Email:   user.Email,
		Message: "Registration successful. Check your e-mail for the verification code.",
	}, nil
}

// CheckEmail reports whether an address is still available
func (s *AuthService) CheckEmail(ctx context.Context, email string) (*dto.CheckEmailResponse, error) {
	email = normalizeEmail(email)
	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking if email exists: %w", err)
	}
	return &dto.CheckEmailResponse{Email: email, Available: !exists}, nil
}

// Login authenticates a user
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		s.logger.Warn().Int64("userID", user.ID).Msg("Failed login attempt")
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to update last login time")
	}
	user.LastLoginAt = &now

	return s.issueTokens(ctx, user)
}

// RefreshToken rotates a refresh token: the presented token is revoked and a new pair is issued
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenNotFound
	}

	var resp *dto.AuthResponse
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.tokenRepo.GetToken(ctx, refreshToken)
		if err != nil {
			return err
		}
		if stored.IsRevoked {
			s.logger.Warn().Int64("userID", stored.UserID).Msg("Revoked refresh token presented")
			return apperrors.ErrTokenRevoked
		}
		if stored.ExpiryDate.Before(s.now()) {
			return apperrors.ErrTokenExpired
		}

		user, err := s.userRepo.GetByID(ctx, stored.UserID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return apperrors.ErrAccountDisabled
		}

		if err := s.tokenRepo.RevokeToken(ctx, refreshToken); err != nil {
			return fmt.Errorf("failed to revoke old token: %w", err)
		}
		resp, err = s.issueTokens(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokenRepo.RevokeToken(ctx, refreshToken); err != nil && !errors.Is(err, apperrors.ErrTokenNotFound) {
		return err
	}
	return nil
}

// Me returns the caller's profile
func (s *AuthService) Me(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// ChangePassword replaces the caller's password and signs out every session
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		return apperrors.ErrInvalidCredentials
	}
	if err := auth.ValidatePasswordStrength(req.NewPassword); err != nil {
		return passwordError(err)
	}
	return s.setPassword(ctx, user.ID, req.NewPassword)
}

func (s *AuthService) setPassword(ctx context.Context, userID int64, password string) error {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.UpdatePassword(ctx, userID, hashed); err != nil {
			return err
		}
		return s.tokenRepo.RevokeAllUserTokens(ctx, userID)
	})
}

// VerifyEmail confirms an address with a one-time code
func (s *AuthService) VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest) error {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return apperrors.ErrInvalidOTP
		}
		return err
	}
	if user.EmailVerified {
		return apperrors.ErrEmailAlreadyVerified
	}
	if err := s.otp.Verify(ctx, user.Email, models.OTPPurposeEmailVerification, req.Code); err != nil {
		return err
	}
	if err := s.userRepo.MarkEmailVerified(ctx, user.ID); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", user.ID).Msg("Email verified")
	return nil
}

// ResendVerification issues a new verification code
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return apperrors.ErrEmailAlreadyVerified
	}
	return s.otp.Issue(ctx, user, models.OTPPurposeEmailVerification)
}

// ForgotPassword sends a reset code. It answers nil for unknown, disabled and
// rate-limited accounts alike so addresses cannot be enumerated.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}
	if err := s.otp.Issue(ctx, user, models.OTPPurposePasswordReset); err != nil {
		if errors.Is(err, apperrors.ErrTooManyRequests) {
			s.logger.Warn().Int64("userID", user.ID).Msg("Password reset requested too often")
			return nil
		}
		s.logger.Error().Err(err).Int64("userID", user.ID).Msg("Failed to issue password reset code")
	}
	return nil
}

// ResetPassword sets a new password after checking the reset code
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	if err := auth.ValidatePasswordStrength(req.NewPassword); err != nil {
		return passwordError(err)
	}
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return apperrors.ErrInvalidOTP
		}
		return err
	}
	if err := s.otp.Verify(ctx, user.Email, models.OTPPurposePasswordReset, req.Code); err != nil {
		return err
	}
	if err := s.setPassword(ctx, user.ID, req.NewPassword); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", user.ID).Msg("Password reset")
	return nil
}

// CleanupExpired purges expired refresh tokens and one-time codes
func (s *AuthService) CleanupExpired(ctx context.Context) (tokens, codes int64, err error) {
	tokens, err = s.tokenRepo.CleanupExpiredTokens(ctx, s.now())
	if err != nil {
		return 0, 0, err
	}
	codes, err = s.otp.Cleanup(ctx)
	return tokens, codes, err
}

// issueTokens creates a token pair and stores the refresh token
func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}
	if err := s.tokenRepo.CreateToken(ctx, pair.RefreshToken, user.ID, pair.RefreshExpiry); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}
	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken:           pair.AccessToken,
			TokenType:             "Bearer",
			ExpiresIn:             pair.ExpiresIn,
			RefreshToken:          pair.RefreshToken,
			RefreshTokenExpiresIn: pair.RefreshExpiresIn,
		},
		User: dto.NewUserResponse(user),
	}, nil
}
