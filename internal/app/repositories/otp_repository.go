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

// OTPRepository stores hashed one-time codes
type OTPRepository struct {
	baseRepository
}

var _ IOTPRepository = (*OTPRepository)(nil)

// NewOTPRepository creates a new OTPRepository
func NewOTPRepository(database *db.PostgresDB) *OTPRepository {
	return &OTPRepository{baseRepository: newBaseRepository(database)}
}

func emailPurpose(email string, purpose models.OTPPurpose) squirrel.And {
	return squirrel.And{
		squirrel.Expr("LOWER(email) = LOWER(?)", strings.TrimSpace(email)),
		squirrel.Eq{"purpose": purpose},
	}
}

// Create stores a new code
func (r *OTPRepository) Create(ctx context.Context, code *models.OTPCode) error {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	sql, args, err := r.sb.Insert("otp_codes").
		Columns("email", "purpose", "code_hash", "attempts", "expires_at", "created_at").
		Values(strings.TrimSpace(code.Email), code.Purpose, code.CodeHash, 0, code.ExpiresAt, code.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create otp query: %w", err)
	}
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&code.ID); err != nil {
		logger.Error().Err(err).Str("purpose", string(code.Purpose)).Msg("Error creating otp code")
		return fmt.Errorf("error creating otp code: %w", err)
	}
	return nil
}

// CountSince counts codes issued for an email and purpose since a moment
func (r *OTPRepository) CountSince(ctx context.Context, email string, purpose models.OTPPurpose, since time.Time) (int, error) {
	n, err := r.countRows(ctx, r.sb.Select("COUNT(*)").From("otp_codes").
		Where(append(emailPurpose(email, purpose), squirrel.GtOrEq{"created_at": since})))
	return int(n), err
}

// InvalidateActive marks every unused code as used so only the newest one works
func (r *OTPRepository) InvalidateActive(ctx context.Context, email string, purpose models.OTPPurpose, at time.Time) error {
	sql, args, err := r.sb.Update("otp_codes").
		Set("used_at", at).
		Where(append(emailPurpose(email, purpose), squirrel.Eq{"used_at": nil})).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build invalidate otp query: %w", err)
	}
	if _, err := r.conn(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error invalidating otp codes: %w", err)
	}
	return nil
}

// GetLatestActive returns the newest unused, unexpired code
func (r *OTPRepository) GetLatestActive(ctx context.Context, email string, purpose models.OTPPurpose, now time.Time) (*models.OTPCode, error) {
	sql, args, err := r.sb.Select("id", "email", "purpose", "code_hash", "attempts", "expires_at", "used_at", "created_at").
		From("otp_codes").
		Where(append(emailPurpose(email, purpose),
			squirrel.Eq{"used_at": nil},
			squirrel.Gt{"expires_at": now})).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get otp query: %w", err)
	}

	c := &models.OTPCode{}
	err = r.conn(ctx).QueryRow(ctx, sql, args...).
		Scan(&c.ID, &c.Email, &c.Purpose, &c.CodeHash, &c.Attempts, &c.ExpiresAt, &c.UsedAt, &c.CreatedAt)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrInvalidOTP
		}
		return nil, fmt.Errorf("error retrieving otp code: %w", err)
	}
	return c, nil
}

// ReserveAttempt counts one verification attempt before the code is compared.
// It fails with ErrOTPAttemptsExceeded once maxAttempts have been spent.
func (r *OTPRepository) ReserveAttempt(ctx context.Context, id int64, maxAttempts int) (int, error) {
	var attempts int
	err := r.conn(ctx).QueryRow(ctx,
		`UPDATE otp_codes SET attempts = attempts + 1
		 WHERE id = $1 AND used_at IS NULL AND attempts < $2
		 RETURNING attempts`, id, maxAttempts).Scan(&attempts)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return 0, apperrors.ErrOTPAttemptsExceeded
		}
		return 0, fmt.Errorf("error updating otp attempts: %w", err)
	}
	return attempts, nil
}

// MarkUsed consumes a code; a code that is already used yields ErrInvalidOTP
func (r *OTPRepository) MarkUsed(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE otp_codes SET used_at = $1 WHERE id = $2 AND used_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("error marking otp used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidOTP
	}
	return nil
}

// DeleteExpired removes codes that expired before the given time
func (r *OTPRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM otp_codes WHERE expires_at < $1`, before)
	if err != nil {
		logger.Error().Err(err).Msg("Error cleaning up otp codes")
		return 0, fmt.Errorf("error deleting expired otp codes: %w", err)
	}
	return tag.RowsAffected(), nil
}
