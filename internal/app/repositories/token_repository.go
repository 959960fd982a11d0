package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/db"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/dberrors"
	"github.com/yigit/schoolportal/internal/pkg/logger"
)

// revokedRetention is how long revoked tokens are kept before cleanup
const revokedRetention = 30 * 24 * time.Hour

// TokenRepository handles token database operations
type TokenRepository struct {
	baseRepository
}

var _ ITokenRepository = (*TokenRepository)(nil)

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(database *db.PostgresDB) *TokenRepository {
	return &TokenRepository{baseRepository: newBaseRepository(database)}
}

// CreateToken creates a new refresh token
func (r *TokenRepository) CreateToken(ctx context.Context, token string, userID int64, expiryDate time.Time) error {
	sql, args, err := r.sb.Insert("refresh_tokens").
		Columns("token", "user_id", "expiry_date", "is_revoked", "created_at").
		Values(token, userID, expiryDate, false, time.Now()).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create token SQL")
		return fmt.Errorf("failed to build create token query: %w", err)
	}

	if _, err = r.conn(ctx).Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "refresh_tokens_token_key") {
			logger.Warn().Int64("userID", userID).Msg("Attempted to create duplicate token")
			return apperrors.ErrTokenInvalid
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error executing create token query")
		return fmt.Errorf("error creating token: %w", err)
	}
	return nil
}

// GetToken retrieves a stored refresh token; revocation and expiry are left to the caller
func (r *TokenRepository) GetToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	sql, args, err := r.sb.Select("token", "user_id", "expiry_date", "is_revoked", "created_at").
		From("refresh_tokens").
		Where(squirrel.Eq{"token": token}).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get token SQL")
		return nil, fmt.Errorf("failed to build get token query: %w", err)
	}

	t := &models.RefreshToken{}
	err = r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&t.Token, &t.UserID, &t.ExpiryDate, &t.IsRevoked, &t.CreatedAt)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrTokenNotFound
		}
		logger.Error().Err(err).Msg("Error scanning token row")
		return nil, fmt.Errorf("error retrieving token: %w", err)
	}
	return t, nil
}

// RevokeToken revokes a token
func (r *TokenRepository) RevokeToken(ctx context.Context, token string) error {
	sql, args, err := r.sb.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building revoke token SQL")
		return fmt.Errorf("failed to build revoke token query: %w", err)
	}

	cmdTag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing revoke token query")
		return fmt.Errorf("error revoking token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrTokenNotFound
	}
	return nil
}

// RevokeAllUserTokens revokes all active tokens for a specific user
func (r *TokenRepository) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	sql, args, err := r.sb.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"user_id": userID, "is_revoked": false}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error building revoke all user tokens SQL")
		return fmt.Errorf("failed to build revoke all user tokens query: %w", err)
	}

	// No rows is fine: the user may have had no active tokens.
	if _, err = r.conn(ctx).Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error executing revoke all user tokens query")
		return fmt.Errorf("error revoking user tokens: %w", err)
	}
	return nil
}

// CleanupExpiredTokens removes expired tokens and old revoked ones
func (r *TokenRepository) CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	sql, args, err := r.sb.Delete("refresh_tokens").
		Where(squirrel.Or{
			squirrel.Lt{"expiry_date": now},
			squirrel.And{
				squirrel.Eq{"is_revoked": true},
				squirrel.Lt{"created_at": now.Add(-revokedRetention)},
			},
		}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building cleanup tokens SQL")
		return 0, fmt.Errorf("failed to build cleanup tokens query: %w", err)
	}

	cmdTag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing cleanup tokens query")
		return 0, fmt.Errorf("error cleaning up tokens: %w", err)
	}

	deleted := cmdTag.RowsAffected()
	logger.Info().Int64("deletedCount", deleted).Msg("Cleaned up expired/old revoked tokens")
	return deleted, nil
}
