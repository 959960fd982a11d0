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

const enrollmentColumns = `e.id, e.student_id, e.section_id, e.school_year, e.semester, e.status, e.remarks,
	e.reviewed_by, e.reviewed_at, e.created_at, e.updated_at, COALESCE(st.student_number, ''),
	u.first_name || ' ' || u.last_name, se.name, c.code`

// EnrollmentRepository handles enrollments and their subject rows
type EnrollmentRepository struct {
	baseRepository
}

var _ IEnrollmentRepository = (*EnrollmentRepository)(nil)

// NewEnrollmentRepository creates a new EnrollmentRepository
func NewEnrollmentRepository(database *db.PostgresDB) *EnrollmentRepository {
	return &EnrollmentRepository{baseRepository: newBaseRepository(database)}
}

func scanEnrollment(row scanner) (*models.Enrollment, error) {
	e := &models.Enrollment{}
	err := row.Scan(&e.ID, &e.StudentID, &e.SectionID, &e.SchoolYear, &e.Semester, &e.Status, &e.Remarks,
		&e.ReviewedBy, &e.ReviewedAt, &e.CreatedAt, &e.UpdatedAt, &e.StudentNumber,
		&e.StudentName, &e.SectionName, &e.CourseCode)
	return e, err
}

func (r *EnrollmentRepository) selectEnrollments() squirrel.SelectBuilder {
	return r.sb.Select(enrollmentColumns).
		From("enrollments e").
		Join("students st ON st.id = e.student_id").
		Join("users u ON u.id = st.user_id").
		Join("sections se ON se.id = e.section_id").
		Join("courses c ON c.id = se.course_id")
}

// Create inserts a pending enrollment
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) (int64, error) {
	now := time.Now()
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentPending
	}
	sql, args, err := r.sb.Insert("enrollments").
		Columns("student_id", "section_id", "school_year", "semester", "status", "created_at", "updated_at").
		Values(enrollment.StudentID, enrollment.SectionID, enrollment.SchoolYear, enrollment.Semester, enrollment.Status, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create enrollment query: %w", err)
	}
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&enrollment.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "enrollments_student_term_key") {
			return 0, apperrors.ErrEnrollmentExists
		}
		if dberrors.IsForeignKeyViolation(err) {
			return 0, apperrors.ErrSectionNotFound
		}
		logger.Error().Err(err).Int64("studentID", enrollment.StudentID).Msg("Error creating enrollment")
		return 0, fmt.Errorf("error creating enrollment: %w", err)
	}
	enrollment.CreatedAt, enrollment.UpdatedAt = now, now
	return enrollment.ID, nil
}

// GetByID retrieves an enrollment
func (r *EnrollmentRepository) GetByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	return r.get(ctx, id, "")
}

// GetByIDForUpdate reads an enrollment and locks its row until the transaction ends
func (r *EnrollmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Enrollment, error) {
	return r.get(ctx, id, "FOR UPDATE OF e")
}

func (r *EnrollmentRepository) get(ctx context.Context, id int64, suffix string) (*models.Enrollment, error) {
	q := r.selectEnrollments().Where(squirrel.Eq{"e.id": id})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get enrollment query: %w", err)
	}
	e, err := scanEnrollment(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("error retrieving enrollment: %w", err)
	}
	return e, nil
}

// HasActiveForTerm reports whether the student holds a pending or approved enrollment for the term
func (r *EnrollmentRepository) HasActiveForTerm(ctx context.Context, studentID int64, schoolYear string, semester models.Semester) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM enrollments
		WHERE student_id = $1 AND school_year = $2 AND semester = $3 AND status IN ('PENDING', 'APPROVED'))`,
		studentID, schoolYear, semester).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking enrollments: %w", err)
	}
	return exists, nil
}

// UpdateStatus records a review decision or drop
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus, remarks *string, reviewerID int64, at time.Time) error {
	sql, args, err := r.sb.Update("enrollments").
		Set("status", status).
		Set("remarks", remarks).
		Set("reviewed_by", reviewerID).
		Set("reviewed_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update enrollment query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "enrollments_student_term_key") {
			return apperrors.ErrEnrollmentExists
		}
		return fmt.Errorf("error updating enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEnrollmentNotFound
	}
	return nil
}

// List returns enrollments matching filter, newest first
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter, offset, limit uint64) ([]*models.Enrollment, int64, error) {
	where := squirrel.And{}
	if filter.StudentID != nil {
		where = append(where, squirrel.Eq{"e.student_id": *filter.StudentID})
	}
	if filter.SectionID != nil {
		where = append(where, squirrel.Eq{"e.section_id": *filter.SectionID})
	}
	if filter.SchoolYear != "" {
		where = append(where, squirrel.Eq{"e.school_year": filter.SchoolYear})
	}
	if filter.Semester != nil {
		where = append(where, squirrel.Eq{"e.semester": *filter.Semester})
	}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"e.status": *filter.Status})
	}

	total, err := r.countRows(ctx, r.sb.Select("COUNT(*)").From("enrollments e").Where(where))
	if err != nil {
		return nil, 0, err
	}
	items, err := r.query(ctx, paginate(r.selectEnrollments().Where(where).OrderBy("e.created_at DESC", "e.id DESC"), offset, limit))
	return items, total, err
}

// ListApprovedBySection returns the approved enrollments of a section
func (r *EnrollmentRepository) ListApprovedBySection(ctx context.Context, sectionID int64) ([]*models.Enrollment, error) {
	return r.query(ctx, r.selectEnrollments().
		Where(squirrel.Eq{"e.section_id": sectionID, "e.status": models.EnrollmentApproved}).
		OrderBy("e.id"))
}

func (r *EnrollmentRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Enrollment, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list enrollments query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing enrollments: %w", err)
	}
	defer rows.Close()

	var items []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning enrollment: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// CountApprovedBySection counts the seats taken in a section
func (r *EnrollmentRepository) CountApprovedBySection(ctx context.Context, sectionID int64) (int, error) {
	n, err := r.countRows(ctx, r.sb.Select("COUNT(*)").From("enrollments").
		Where(squirrel.Eq{"section_id": sectionID, "status": models.EnrollmentApproved}))
	return int(n), err
}

// EnsureSubject creates the enrollment_subjects row when missing and returns its ID
func (r *EnrollmentRepository) EnsureSubject(ctx context.Context, enrollmentID, scheduleID int64) (int64, bool, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO enrollment_subjects (enrollment_id, schedule_id) VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT enrollment_subjects_enrollment_schedule_key DO NOTHING
		RETURNING id`, enrollmentID, scheduleID).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !dberrors.IsNoRows(err) {
		return 0, false, fmt.Errorf("error creating enrollment subject: %w", err)
	}

	err = r.conn(ctx).QueryRow(ctx,
		`SELECT id FROM enrollment_subjects WHERE enrollment_id = $1 AND schedule_id = $2`,
		enrollmentID, scheduleID).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("error retrieving enrollment subject: %w", err)
	}
	return id, false, nil
}

// ListRoster returns the approved students taking a schedule
func (r *EnrollmentRepository) ListRoster(ctx context.Context, scheduleID int64) ([]models.RosterEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT e.id, st.id, COALESCE(st.student_number, ''), u.first_name, u.last_name, u.email
		FROM enrollment_subjects es
		JOIN enrollments e ON e.id = es.enrollment_id
		JOIN students st ON st.id = e.student_id
		JOIN users u ON u.id = st.user_id
		WHERE es.schedule_id = $1 AND e.status = 'APPROVED'
		ORDER BY u.last_name, u.first_name`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("error listing roster: %w", err)
	}
	defer rows.Close()

	roster := []models.RosterEntry{}
	for rows.Next() {
		var e models.RosterEntry
		if err := rows.Scan(&e.EnrollmentID, &e.StudentID, &e.StudentNumber, &e.FirstName, &e.LastName, &e.Email); err != nil {
			return nil, fmt.Errorf("error scanning roster entry: %w", err)
		}
		roster = append(roster, e)
	}
	return roster, rows.Err()
}
