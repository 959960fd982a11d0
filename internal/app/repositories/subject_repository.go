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

const subjectColumns = "id, code, name, units, description, created_at, updated_at"

// SubjectRepository handles subject persistence
type SubjectRepository struct {
	baseRepository
}

var _ ISubjectRepository = (*SubjectRepository)(nil)

// NewSubjectRepository creates a new SubjectRepository
func NewSubjectRepository(database *db.PostgresDB) *SubjectRepository {
	return &SubjectRepository{baseRepository: newBaseRepository(database)}
}

func scanSubject(row scanner) (*models.Subject, error) {
	s := &models.Subject{}
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Units, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a subject
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) (int64, error) {
	now := time.Now()
	sql, args, err := r.sb.Insert("subjects").
		Columns("code", "name", "units", "description", "created_at", "updated_at").
		Values(subject.Code, subject.Name, subject.Units, subject.Description, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create subject query: %w", err)
	}
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&subject.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "subjects_code_key") {
			return 0, apperrors.NewConflictError("subject code already exists")
		}
		logger.Error().Err(err).Str("code", subject.Code).Msg("Error creating subject")
		return 0, fmt.Errorf("error creating subject: %w", err)
	}
	subject.CreatedAt, subject.UpdatedAt = now, now
	return subject.ID, nil
}

// GetByID retrieves a subject
func (r *SubjectRepository) GetByID(ctx context.Context, id int64) (*models.Subject, error) {
	sql, args, err := r.sb.Select(subjectColumns).From("subjects").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get subject query: %w", err)
	}
	s, err := scanSubject(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("error retrieving subject: %w", err)
	}
	return s, nil
}

// Update saves a subject
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	sql, args, err := r.sb.Update("subjects").
		Set("code", subject.Code).
		Set("name", subject.Name).
		Set("units", subject.Units).
		Set("description", subject.Description).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": subject.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update subject query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "subjects_code_key") {
			return apperrors.NewConflictError("subject code already exists")
		}
		return fmt.Errorf("error updating subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSubjectNotFound
	}
	return nil
}

// Delete removes a subject that no schedule uses
func (r *SubjectRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrResourceInUse
		}
		return fmt.Errorf("error deleting subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSubjectNotFound
	}
	return nil
}

// List returns subjects ordered by code
func (r *SubjectRepository) List(ctx context.Context, search string, offset, limit uint64) ([]*models.Subject, int64, error) {
	where := squirrel.And{}
	if s := strings.TrimSpace(search); s != "" {
		p := likePattern(s)
		where = append(where, squirrel.Or{squirrel.ILike{"code": p}, squirrel.ILike{"name": p}})
	}

	total, err := r.countRows(ctx, r.sb.Select("COUNT(*)").From("subjects").Where(where))
	if err != nil {
		return nil, 0, err
	}
	sql, args, err := paginate(r.sb.Select(subjectColumns).From("subjects").Where(where).OrderBy("code"), offset, limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list subjects query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing subjects: %w", err)
	}
	defer rows.Close()

	var items []*models.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning subject: %w", err)
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
