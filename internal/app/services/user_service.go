package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/db"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/auth"
	"github.com/yigit/schoolportal/internal/pkg/email"
)

const temporaryPasswordLength = 12

// UserService defines the interface for admin user management
type UserService interface {
	ListUsers(ctx context.Context, filter models.UserFilter, p PageRequest) (*dto.PaginatedResponse, error)
	GetUser(ctx context.Context, id int64) (*dto.UserResponse, error)
	CreateUser(ctx context.Context, actor Actor, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	UpdateUser(ctx context.Context, actor Actor, id int64, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	SetActive(ctx context.Context, actor Actor, id int64, active bool) (*dto.UserResponse, error)
	ResetPassword(ctx context.Context, actor Actor, id int64) error
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	userRepo    repositories.IUserRepository
	studentRepo repositories.IStudentRepository
	tokenRepo   repositories.ITokenRepository
	audit       *AuditService
	mailer      email.EmailService
	tx          db.TxManager
	logger      zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo repositories.IUserRepository,
	studentRepo repositories.IStudentRepository,
	tokenRepo repositories.ITokenRepository,
	audit *AuditService,
	mailer email.EmailService,
	tx db.TxManager,
	logger zerolog.Logger,
) UserService {
	return &userServiceImpl{
		userRepo:    userRepo,
		studentRepo: studentRepo,
		tokenRepo:   tokenRepo,
		audit:       audit,
		mailer:      mailer,
		tx:          tx,
		logger:      logger,
	}
}

// ListUsers returns a page of users
func (s *userServiceImpl) ListUsers(ctx context.Context, filter models.UserFilter, p PageRequest) (*dto.PaginatedResponse, error) {
	offset, limit := p.bounds()
	users, total, err := s.userRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return paginated(dto.NewUserResponses(users), total, p), nil
}

// GetUser retrieves a user by ID
func (s *userServiceImpl) GetUser(ctx context.Context, id int64) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// CreateUser creates an already verified account. Without a password a
// temporary one is generated and e-mailed to the user.
func (s *userServiceImpl) CreateUser(ctx context.Context, actor Actor, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	role := models.RoleType(req.RoleType)
	if !role.IsValid() {
		return nil, apperrors.NewValidationError("invalid role type")
	}

	password := req.Password
	generated := password == ""
	if generated {
		var err error
		password, err = auth.GenerateTemporaryPassword(temporaryPasswordLength)
		if err != nil {
			return nil, err
		}
	} else if err := auth.ValidatePasswordStrength(password); err != nil {
		return nil, passwordError(err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:         normalizeEmail(req.Email),
		Password:      hashed,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		RoleType:      role,
		IsActive:      true,
		EmailVerified: true,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		if role == models.RoleStudent {
			if _, err := s.studentRepo.Create(ctx, &models.Student{UserID: user.ID}); err != nil {
				return err
			}
		}
		return s.audit.Record(ctx, actor, models.ActionUserCreate, models.EntityUser, int64Ptr(user.ID), map[string]interface{}{
			"email":    user.Email,
			"roleType": user.RoleType,
		})
	})
	if err != nil {
		return nil, err
	}

	if generated {
		if err := s.mailer.SendTemporaryPasswordEmail(ctx, user.Email, user.FullName(), password); err != nil {
			s.logger.Error().Err(err).Int64("userID", user.ID).Msg("Failed to send temporary password")
		}
	} else if err := s.mailer.SendWelcomeEmail(ctx, user.Email, user.FullName()); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to send welcome e-mail")
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// UpdateUser changes a user's name and email
func (s *userServiceImpl) UpdateUser(ctx context.Context, actor Actor, id int64, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	var user *models.User
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		before := user.Email
		user.FirstName = strings.TrimSpace(req.FirstName)
		user.LastName = strings.TrimSpace(req.LastName)
		user.Email = normalizeEmail(req.Email)
		if err := s.userRepo.Update(ctx, user); err != nil {
			return err
		}
		details := map[string]interface{}{"firstName": user.FirstName, "lastName": user.LastName}
		if before != user.Email {
			details["previousEmail"] = before
			details["email"] = user.Email
		}
		return s.audit.Record(ctx, actor, models.ActionUserUpdate, models.EntityUser, int64Ptr(id), details)
	})
	if err != nil {
		return nil, err
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// SetActive enables or disables an account. Disabling signs the user out everywhere.
func (s *userServiceImpl) SetActive(ctx context.Context, actor Actor, id int64, active bool) (*dto.UserResponse, error) {
	if id == actor.UserID {
		return nil, apperrors.ErrCannotModifySelf
	}

	var user *models.User
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.userRepo.SetActive(ctx, id, active); err != nil {
			return err
		}
		user.IsActive = active

		action := models.ActionUserActivate
		if !active {
			action = models.ActionUserDeactivate
			if err := s.tokenRepo.RevokeAllUserTokens(ctx, id); err != nil {
				return err
			}
		}
		return s.audit.Record(ctx, actor, action, models.EntityUser, int64Ptr(id), nil)
	})
	if err != nil {
		return nil, err
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// ResetPassword replaces the user's password with a temporary one and e-mails it
func (s *userServiceImpl) ResetPassword(ctx context.Context, actor Actor, id int64) error {
	password, err := auth.GenerateTemporaryPassword(temporaryPasswordLength)
	if err != nil {
		return err
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	var user *models.User
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		user, err = s.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.userRepo.UpdatePassword(ctx, id, hashed); err != nil {
			return err
		}
		if err := s.tokenRepo.RevokeAllUserTokens(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.ActionUserResetPassword, models.EntityUser, int64Ptr(id), nil)
	})
	if err != nil {
		return err
	}

	if err := s.mailer.SendTemporaryPasswordEmail(ctx, user.Email, user.FullName(), password); err != nil {
		return fmt.Errorf("password was reset but the e-mail could not be sent: %w", err)
	}
	return nil
}
