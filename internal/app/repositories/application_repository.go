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

const applicationColumns = `a.id, a.student_id, a.course_id, a.school_year, a.year_level, a.status, a.remarks,
	a.reviewed_by, a.reviewed_at, a.created_at, a.updated_at, u.first_name || ' ' || u.last_name, c.code`

// ApplicationRepository handles admission applications
type ApplicationRepository struct {
	baseRepository
}

var _ IApplicationRepository = (*ApplicationRepository)(nil)

// NewApplicationRepository creates a new ApplicationRepository
func NewApplicationRepository(database *db.PostgresDB) *ApplicationRepository {
	return &ApplicationRepository{baseRepository: newBaseRepository(database)}
}

func scanApplication(row scanner) (*models.Application, error) {
	a := &models.Application{}
	err := row.Scan(&a.ID, &a.StudentID, &a.CourseID, &a.SchoolYear, &a.YearLevel, &a.Status, &a.Remarks,
		&a.ReviewedBy, &a.ReviewedAt, &a.CreatedAt, &a.UpdatedAt, &a.StudentName, &a.CourseCode)
	return a, err
}

func (r *ApplicationRepository) selectApplications() squirrel.SelectBuilder {
	return r.sb.Select(applicationColumns).
		From("applications a").
		Join("students s ON s.id = a.student_id").
		Join("users u ON u.id = s.user_id").
		Join("courses c ON c.id = a.course_id")
}

// Create inserts a pending application
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) (int64, error) {
	now := time.Now()
	if app.Status == "" {
		app.Status = models.ApplicationPending
	}
	sql, args, err := r.sb.Insert("applications").
		Columns("student_id", "course_id", "school_year", "year_level", "status", "created_at", "updated_at").
		Values(app.StudentID, app.CourseID, app.SchoolYear, app.YearLevel, app.Status, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create application query: %w", err)
	}

	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&app.ID); err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, "applications_one_pending_key"):
			return 0, apperrors.ErrApplicationPending
		case dberrors.IsDuplicateConstraintError(err, "applications_one_approved_key"):
			return 0, apperrors.ErrApplicationAlreadyApproved
		case dberrors.IsForeignKeyViolation(err):
			return 0, apperrors.ErrCourseNotFound
		}
		logger.Error().Err(err).Int64("studentID", app.StudentID).Msg("Error creating application")
		return 0, fmt.Errorf("error creating application: %w", err)
	}
	app.CreatedAt, app.UpdatedAt = now, now
	return app.ID, nil
}

// GetByID retrieves an application
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	sql, args, err := r.selectApplications().Where(squirrel.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get application query: %w", err)
	}
	a, err := scanApplication(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error retrieving application: %w", err)
	}
	return a, nil
}

// ListByStudent returns a student's applications, newest first
func (r *ApplicationRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.Application, error) {
	items, _, err := r.list(ctx, squirrel.Eq{"a.student_id": studentID}, 0, 0, false)
	return items, err
}

// HasStatus reports whether the student has an application in status
func (r *ApplicationRepository) HasStatus(ctx context.Context, studentID int64, status models.ApplicationStatus) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM applications WHERE student_id = $1 AND status = $2)`,
		studentID, status).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking applications: %w", err)
	}
	return exists, nil
}

// UpdateStatus records a review decision
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id int64, status models.ApplicationStatus, remarks *string, reviewerID int64, at time.Time) error {
	sql, args, err := r.sb.Update("applications").
		Set("status", status).
		Set("remarks", remarks).
		Set("reviewed_by", reviewerID).
		Set("reviewed_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update application query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "applications_one_approved_key") {
			return apperrors.ErrApplicationAlreadyApproved
		}
		return fmt.Errorf("error updating application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrApplicationNotFound
	}
	return nil
}

// List returns applications matching filter
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter, offset, limit uint64) ([]*models.Application, int64, error) {
	where := squirrel.And{}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"a.status": *filter.Status})
	}
	if filter.SchoolYear != "" {
		where = append(where, squirrel.Eq{"a.school_year": filter.SchoolYear})
	}
	if filter.StudentID != nil {
		where = append(where, squirrel.Eq{"a.student_id": *filter.StudentID})
	}
	return r.list(ctx, where, offset, limit, true)
}

func (r *ApplicationRepository) list(ctx context.Context, where squirrel.Sqlizer, offset, limit uint64, withTotal bool) ([]*models.Application, int64, error) {
	var total int64
	if withTotal {
		var err error
		total, err = r.countRows(ctx, r.sb.Select("COUNT(*)").From("applications a").Where(where))
		if err != nil {
			return nil, 0, err
		}
	}

	sql, args, err := paginate(r.selectApplications().Where(where).OrderBy("a.created_at DESC", "a.id DESC"), offset, limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list applications query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing applications: %w", err)
	}
	defer rows.Close()

	var items []*models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning application: %w", err)
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
