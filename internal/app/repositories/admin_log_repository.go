package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/db"
	"github.com/yigit/schoolportal/internal/pkg/logger"
)

// AdminLogRepository stores the audit trail
type AdminLogRepository struct {
	baseRepository
}

var _ IAdminLogRepository = (*AdminLogRepository)(nil)

// NewAdminLogRepository creates a new AdminLogRepository
func NewAdminLogRepository(database *db.PostgresDB) *AdminLogRepository {
	return &AdminLogRepository{baseRepository: newBaseRepository(database)}
}

// Create appends an entry
func (r *AdminLogRepository) Create(ctx context.Context, entry *models.AdminLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	var details interface{}
	if len(entry.Details) > 0 {
		details = string(entry.Details)
	}
	sql, args, err := r.sb.Insert("admin_logs").
		Columns("actor_id", "action", "entity_type", "entity_id", "details", "ip_address", "created_at").
		Values(entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
			squirrel.Expr("?::jsonb", details), entry.IPAddress, entry.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create admin log query: %w", err)
	}
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&entry.ID); err != nil {
		logger.Error().Err(err).Str("action", entry.Action).Msg("Error writing admin log")
		return fmt.Errorf("error creating admin log: %w", err)
	}
	return nil
}

// List returns entries matching filter, newest first
func (r *AdminLogRepository) List(ctx context.Context, filter models.AdminLogFilter, offset, limit uint64) ([]*models.AdminLog, int64, error) {
	where := squirrel.And{}
	if filter.Action != "" {
		where = append(where, squirrel.Eq{"l.action": filter.Action})
	}
	if filter.ActorID != nil {
		where = append(where, squirrel.Eq{"l.actor_id": *filter.ActorID})
	}
	if filter.EntityType != "" {
		where = append(where, squirrel.Eq{"l.entity_type": filter.EntityType})
	}
	if filter.From != nil {
		where = append(where, squirrel.GtOrEq{"l.created_at": *filter.From})
	}
	if filter.To != nil {
		where = append(where, squirrel.Lt{"l.created_at": *filter.To})
	}

	total, err := r.countRows(ctx, r.sb.Select("COUNT(*)").From("admin_logs l").Where(where))
	if err != nil {
		return nil, 0, err
	}
	sql, args, err := paginate(r.sb.Select("l.id, l.actor_id, l.action, l.entity_type, l.entity_id, l.details, l.ip_address, l.created_at, COALESCE(u.email, '')").
		From("admin_logs l").
		LeftJoin("users u ON u.id = l.actor_id").
		Where(where).
		OrderBy("l.created_at DESC", "l.id DESC"), offset, limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list admin logs query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing admin logs: %w", err)
	}
	defer rows.Close()

	var items []*models.AdminLog
	for rows.Next() {
		l := &models.AdminLog{}
		var details []byte
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &l.EntityType, &l.EntityID, &details, &l.IPAddress, &l.CreatedAt, &l.ActorEmail); err != nil {
			return nil, 0, fmt.Errorf("error scanning admin log: %w", err)
		}
		l.Details = details
		items = append(items, l)
	}
	return items, total, rows.Err()
}
