package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/db"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/dberrors"
	"github.com/yigit/schoolportal/internal/pkg/logger"
)

const userColumns = "id, email, password, first_name, last_name, role_type, is_active, email_verified, last_login_at, created_at, updated_at"

// UserRepository handles user database operations
type UserRepository struct {
	baseRepository
}

var _ IUserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository
func NewUserRepository(database *db.PostgresDB) *UserRepository {
	return &UserRepository{baseRepository: newBaseRepository(database)}
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.RoleType,
		&u.IsActive, &u.EmailVerified, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a user and returns its ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) (int64, error) {
	now := time.Now()
	sql, args, err := r.sb.Insert("users").
		Columns("email", "password", "first_name", "last_name", "role_type", "is_active", "email_verified", "created_at", "updated_at").
		Values(strings.TrimSpace(user.Email), user.Password, user.FirstName, user.LastName, user.RoleType, user.IsActive, user.EmailVerified, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create user query: %w", err)
	}

	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&user.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_email_lower_key") {
			return 0, apperrors.ErrEmailAlreadyExists
		}
		logger.Error().Err(err).Str("email", user.Email).Msg("Error creating user")
		return 0, fmt.Errorf("error creating user: %w", err)
	}
	user.CreatedAt, user.UpdatedAt = now, now
	return user.ID, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by email, ignoring case
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Expr("LOWER(email) = LOWER(?)", strings.TrimSpace(email)))
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	u, err := scanUser(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return u, nil
}

// EmailExists checks if an email already exists
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`,
		strings.TrimSpace(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return exists, nil
}

// Update saves names and email
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	sql, args, err := r.sb.Update("users").
		Set("email", strings.TrimSpace(user.Email)).
		Set("first_name", user.FirstName).
		Set("last_name", user.LastName).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update user query: %w", err)
	}
	return r.execOne(ctx, sql, args)
}

// UpdatePassword replaces the password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.setColumn(ctx, id, "password", passwordHash)
}

// SetActive enables or disables an account
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.setColumn(ctx, id, "is_active", active)
}

// MarkEmailVerified flags the address as confirmed
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id int64) error {
	return r.setColumn(ctx, id, "email_verified", true)
}

// UpdateLastLogin updates the last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last login time: %w", err)
	}
	return nil
}

func (r *UserRepository) setColumn(ctx context.Context, id int64, column string, value interface{}) error {
	sql, args, err := r.sb.Update("users").
		Set(column, value).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}
	return r.execOne(ctx, sql, args)
}

func (r *UserRepository) execOne(ctx context.Context, sql string, args []interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_email_lower_key") {
			return apperrors.ErrEmailAlreadyExists
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// List returns users matching filter, newest first
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter, offset, limit uint64) ([]*models.User, int64, error) {
	where := squirrel.And{}
	if filter.RoleType != nil {
		where = append(where, squirrel.Eq{"role_type": *filter.RoleType})
	}
	if filter.IsActive != nil {
		where = append(where, squirrel.Eq{"is_active": *filter.IsActive})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		p := likePattern(s)
		where = append(where, squirrel.Or{
			squirrel.ILike{"email": p},
			squirrel.ILike{"first_name": p},
			squirrel.ILike{"last_name": p},
		})
	}

	total, err := r.countRows(ctx, r.sb.Select("COUNT(*)").From("users").Where(where))
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := paginate(r.sb.Select(userColumns).From("users").Where(where).OrderBy("created_at DESC", "id DESC"), offset, limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list users query: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}
