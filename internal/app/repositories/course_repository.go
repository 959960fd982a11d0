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

const courseColumns = "id, code, name, description, is_active, created_at, updated_at"

// CourseRepository handles course persistence
type CourseRepository struct {
	baseRepository
}

var _ ICourseRepository = (*CourseRepository)(nil)

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(database *db.PostgresDB) *CourseRepository {
	return &CourseRepository{baseRepository: newBaseRepository(database)}
}

func scanCourse(row scanner) (*models.Course, error) {
	c := &models.Course{}
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a course
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) (int64, error) {
	now := time.Now()
	sql, args, err := r.sb.Insert("courses").
		Columns("code", "name", "description", "is_active", "created_at", "updated_at").
		Values(course.Code, course.Name, course.Description, course.IsActive, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create course query: %w", err)
	}
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&course.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "courses_code_key") {
			return 0, apperrors.NewConflictError("course code already exists")
		}
		logger.Error().Err(err).Str("code", course.Code).Msg("Error creating course")
		return 0, fmt.Errorf("error creating course: %w", err)
	}
	course.CreatedAt, course.UpdatedAt = now, now
	return course.ID, nil
}

// GetByID retrieves a course
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	sql, args, err := r.sb.Select(courseColumns).From("courses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}
	c, err := scanCourse(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("error retrieving course: %w", err)
	}
	return c, nil
}

// Update saves a course
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	sql, args, err := r.sb.Update("courses").
		Set("code", course.Code).
		Set("name", course.Name).
		Set("description", course.Description).
		Set("is_active", course.IsActive).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": course.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update course query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "courses_code_key") {
			return apperrors.NewConflictError("course code already exists")
		}
		return fmt.Errorf("error updating course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}

// Delete removes a course that nothing references
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrResourceInUse
		}
		return fmt.Errorf("error deleting course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}

// List returns courses ordered by code
func (r *CourseRepository) List(ctx context.Context, search string, activeOnly bool, offset, limit uint64) ([]*models.Course, int64, error) {
	where := squirrel.And{}
	if s := strings.TrimSpace(search); s != "" {
		p := likePattern(s)
		where = append(where, squirrel.Or{squirrel.ILike{"code": p}, squirrel.ILike{"name": p}})
	}
	if activeOnly {
		where = append(where, squirrel.Eq{"is_active": true})
	}

	total, err := r.countRows(ctx, r.sb.Select("COUNT(*)").From("courses").Where(where))
	if err != nil {
		return nil, 0, err
	}
	sql, args, err := paginate(r.sb.Select(courseColumns).From("courses").Where(where).OrderBy("code"), offset, limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list courses query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing courses: %w", err)
	}
	defer rows.Close()

	var items []*models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning course: %w", err)
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
