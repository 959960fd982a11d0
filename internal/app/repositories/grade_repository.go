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

const gradeColumns = `g.id, g.enrollment_subject_id, g.teacher_id, g.q1, g.q2, g.q3, g.q4, g.final_grade,
	g.remarks, g.status, g.rejection_reason, g.submitted_at, g.approved_by, g.approved_at, g.locked_by,
	g.locked_at, g.created_at, g.updated_at, es.enrollment_id, es.schedule_id, e.student_id,
	COALESCE(st.student_number, ''), u.first_name || ' ' || u.last_name, su.code, su.name, su.units,
	e.school_year, e.semester`

// GradeRepository handles grade rows
type GradeRepository struct {
	baseRepository
}

var _ IGradeRepository = (*GradeRepository)(nil)

// NewGradeRepository creates a new GradeRepository
func NewGradeRepository(database *db.PostgresDB) *GradeRepository {
	return &GradeRepository{baseRepository: newBaseRepository(database)}
}

func scanGrade(row scanner) (*models.Grade, error) {
	g := &models.Grade{}
	err := row.Scan(&g.ID, &g.EnrollmentSubjectID, &g.TeacherID, &g.Q1, &g.Q2, &g.Q3, &g.Q4, &g.FinalGrade,
		&g.Remarks, &g.Status, &g.RejectionReason, &g.SubmittedAt, &g.ApprovedBy, &g.ApprovedAt, &g.LockedBy,
		&g.LockedAt, &g.CreatedAt, &g.UpdatedAt, &g.EnrollmentID, &g.ScheduleID, &g.StudentID,
		&g.StudentNumber, &g.StudentName, &g.SubjectCode, &g.SubjectName, &g.Units,
		&g.SchoolYear, &g.Semester)
	return g, err
}

func (r *GradeRepository) selectGrades() squirrel.SelectBuilder {
	return r.sb.Select(gradeColumns).
		From("grades g").
		Join("enrollment_subjects es ON es.id = g.enrollment_subject_id").
		Join("enrollments e ON e.id = es.enrollment_id").
		Join("students st ON st.id = e.student_id").
		Join("users u ON u.id = st.user_id").
		Join("schedules sc ON sc.id = es.schedule_id").
		Join("subjects su ON su.id = sc.subject_id")
}

// EnsureDraft creates an empty DRAFT grade for an enrollment subject when none exists
func (r *GradeRepository) EnsureDraft(ctx context.Context, enrollmentSubjectID int64, teacherID *int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO grades (enrollment_subject_id, teacher_id, status, remarks)
		VALUES ($1, $2, 'DRAFT', 'INCOMPLETE')
		ON CONFLICT ON CONSTRAINT grades_enrollment_subject_key DO NOTHING`,
		enrollmentSubjectID, teacherID)
	if err != nil {
		logger.Error().Err(err).Int64("enrollmentSubjectID", enrollmentSubjectID).Msg("Error creating draft grade")
		return false, fmt.Errorf("error creating draft grade: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReassignUnfinalized hands DRAFT, SUBMITTED and REJECTED grades of a schedule to teacherID
func (r *GradeRepository) ReassignUnfinalized(ctx context.Context, scheduleID int64, teacherID *int64) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE grades g SET teacher_id = $2, updated_at = NOW()
		FROM enrollment_subjects es
		WHERE es.id = g.enrollment_subject_id
		  AND es.schedule_id = $1
		  AND g.status IN ('DRAFT', 'SUBMITTED', 'REJECTED')
		  AND g.teacher_id IS DISTINCT FROM $2`,
		scheduleID, teacherID)
	if err != nil {
		return 0, fmt.Errorf("error reassigning grades: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetByID retrieves a grade with its student and subject context
func (r *GradeRepository) GetByID(ctx context.Context, id int64) (*models.Grade, error) {
	return r.get(ctx, id, "")
}

// GetByIDForUpdate locks the grade row for the rest of the transaction
func (r *GradeRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Grade, error) {
	return r.get(ctx, id, "FOR UPDATE OF g")
}

func (r *GradeRepository) get(ctx context.Context, id int64, suffix string) (*models.Grade, error) {
	q := r.selectGrades().Where(squirrel.Eq{"g.id": id})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get grade query: %w", err)
	}
	g, err := scanGrade(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrGradeNotFound
		}
		return nil, fmt.Errorf("error retrieving grade: %w", err)
	}
	return g, nil
}

// Save writes scores, status and actor columns
func (r *GradeRepository) Save(ctx context.Context, grade *models.Grade) error {
	grade.UpdatedAt = time.Now()
	sql, args, err := r.sb.Update("grades").
		SetMap(map[string]interface{}{
			"teacher_id":       grade.TeacherID,
			"q1":               grade.Q1,
			"q2":               grade.Q2,
			"q3":               grade.Q3,
			"q4":               grade.Q4,
			"final_grade":      grade.FinalGrade,
			"remarks":          grade.Remarks,
			"status":           grade.Status,
			"rejection_reason": grade.RejectionReason,
			"submitted_at":     grade.SubmittedAt,
			"approved_by":      grade.ApprovedBy,
			"approved_at":      grade.ApprovedAt,
			"locked_by":        grade.LockedBy,
			"locked_at":        grade.LockedAt,
			"updated_at":       grade.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": grade.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build save grade query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("gradeID", grade.ID).Msg("Error saving grade")
		return fmt.Errorf("error saving grade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrGradeNotFound
	}
	return nil
}

// List returns grades matching filter ordered by student
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter, offset, limit uint64) ([]*models.Grade, int64, error) {
	where := squirrel.And{}
	if filter.ScheduleID != nil {
		where = append(where, squirrel.Eq{"es.schedule_id": *filter.ScheduleID})
	}
	if filter.TeacherID != nil {
		where = append(where, squirrel.Eq{"g.teacher_id": *filter.TeacherID})
	}
	if filter.StudentID != nil {
		where = append(where, squirrel.Eq{"e.student_id": *filter.StudentID})
	}
	if filter.EnrollmentID != nil {
		where = append(where, squirrel.Eq{"es.enrollment_id": *filter.EnrollmentID})
	}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"g.status": *filter.Status})
	}
	if filter.SchoolYear != "" {
		where = append(where, squirrel.Eq{"e.school_year": filter.SchoolYear})
	}
	if filter.FinalOnly {
		where = append(where, squirrel.Eq{"g.status": []models.GradeStatus{models.GradeApproved, models.GradeLocked}})
	}

	total, err := r.countRows(ctx, r.sb.Select("COUNT(*)").
		From("grades g").
		Join("enrollment_subjects es ON es.id = g.enrollment_subject_id").
		Join("enrollments e ON e.id = es.enrollment_id").
		Where(where))
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := paginate(r.selectGrades().Where(where).
		OrderBy("e.school_year DESC", "e.semester DESC", "su.code", "u.last_name", "u.first_name", "g.id"), offset, limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list grades query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing grades: %w", err)
	}
	defer rows.Close()

	var items []*models.Grade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning grade: %w", err)
		}
		items = append(items, g)
	}
	return items, total, rows.Err()
}

// DeleteEmptyDrafts removes score-less DRAFT grades of an enrollment
func (r *GradeRepository) DeleteEmptyDrafts(ctx context.Context, enrollmentID int64) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM grades g USING enrollment_subjects es
		WHERE es.id = g.enrollment_subject_id
		  AND es.enrollment_id = $1
		  AND g.status = 'DRAFT'
		  AND g.q1 IS NULL AND g.q2 IS NULL AND g.q3 IS NULL AND g.q4 IS NULL`, enrollmentID)
	if err != nil {
		return 0, fmt.Errorf("error deleting draft grades: %w", err)
	}
	return tag.RowsAffected(), nil
}
