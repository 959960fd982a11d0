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

// TIME columns travel as HH:MM strings
const scheduleColumns = `sc.id, sc.section_id, sc.subject_id, sc.teacher_id, sc.day_of_week,
	to_char(sc.start_time, 'HH24:MI'), to_char(sc.end_time, 'HH24:MI'), sc.room, sc.created_at, sc.updated_at,
	se.name, su.code, su.name, COALESCE(t.first_name || ' ' || t.last_name, '')`

// ScheduleRepository handles weekly schedule persistence
type ScheduleRepository struct {
	baseRepository
}

var _ IScheduleRepository = (*ScheduleRepository)(nil)

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(database *db.PostgresDB) *ScheduleRepository {
	return &ScheduleRepository{baseRepository: newBaseRepository(database)}
}

func scanSchedule(row scanner) (*models.Schedule, error) {
	s := &models.Schedule{}
	err := row.Scan(&s.ID, &s.SectionID, &s.SubjectID, &s.TeacherID, &s.DayOfWeek,
		&s.StartTime, &s.EndTime, &s.Room, &s.CreatedAt, &s.UpdatedAt,
		&s.SectionName, &s.SubjectCode, &s.SubjectName, &s.TeacherName)
	return s, err
}

func (r *ScheduleRepository) selectSchedules() squirrel.SelectBuilder {
	return r.sb.Select(scheduleColumns).
		From("schedules sc").
		Join("sections se ON se.id = sc.section_id").
		Join("subjects su ON su.id = sc.subject_id").
		LeftJoin("users t ON t.id = sc.teacher_id")
}

func scheduleWriteError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, "schedules_section_subject_key"):
		return apperrors.NewConflictError("subject is already scheduled for this section")
	case dberrors.IsForeignKeyViolation(err):
		return apperrors.NewBadRequestError("section, subject or teacher does not exist")
	}
	return nil
}

// Create inserts a schedule
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) (int64, error) {
	now := time.Now()
	sql, args, err := r.sb.Insert("schedules").
		Columns("section_id", "subject_id", "teacher_id", "day_of_week", "start_time", "end_time", "room", "created_at", "updated_at").
		Values(schedule.SectionID, schedule.SubjectID, schedule.TeacherID, schedule.DayOfWeek,
			squirrel.Expr("?::time", schedule.StartTime), squirrel.Expr("?::time", schedule.EndTime),
			schedule.Room, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create schedule query: %w", err)
	}
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&schedule.ID); err != nil {
		if mapped := scheduleWriteError(err); mapped != nil {
			return 0, mapped
		}
		logger.Error().Err(err).Int64("sectionID", schedule.SectionID).Msg("Error creating schedule")
		return 0, fmt.Errorf("error creating schedule: %w", err)
	}
	schedule.CreatedAt, schedule.UpdatedAt = now, now
	return schedule.ID, nil
}

// GetByID retrieves a schedule with section, subject and teacher names
func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	sql, args, err := r.selectSchedules().Where(squirrel.Eq{"sc.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get schedule query: %w", err)
	}
	s, err := scanSchedule(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("error retrieving schedule: %w", err)
	}
	return s, nil
}

// Update saves slot, room and subject; the teacher is changed through SetTeacher
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	sql, args, err := r.sb.Update("schedules").
		Set("section_id", schedule.SectionID).
		Set("subject_id", schedule.SubjectID).
		Set("day_of_week", schedule.DayOfWeek).
		Set("start_time", squirrel.Expr("?::time", schedule.StartTime)).
		Set("end_time", squirrel.Expr("?::time", schedule.EndTime)).
		Set("room", schedule.Room).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": schedule.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update schedule query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if mapped := scheduleWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("error updating schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrScheduleNotFound
	}
	return nil
}

// Delete removes a schedule that has no enrolled subjects
func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrResourceInUse
		}
		return fmt.Errorf("error deleting schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrScheduleNotFound
	}
	return nil
}

// SetTeacher assigns or clears the teacher
func (r *ScheduleRepository) SetTeacher(ctx context.Context, id int64, teacherID *int64) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE schedules SET teacher_id = $1, updated_at = NOW() WHERE id = $2`, teacherID, id)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("error assigning teacher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrScheduleNotFound
	}
	return nil
}

// List returns schedules matching filter
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter, offset, limit uint64) ([]*models.Schedule, int64, error) {
	where := squirrel.And{}
	if filter.SectionID != nil {
		where = append(where, squirrel.Eq{"sc.section_id": *filter.SectionID})
	}
	if filter.TeacherID != nil {
		where = append(where, squirrel.Eq{"sc.teacher_id": *filter.TeacherID})
	}
	if filter.SubjectID != nil {
		where = append(where, squirrel.Eq{"sc.subject_id": *filter.SubjectID})
	}

	total, err := r.countRows(ctx, r.sb.Select("COUNT(*)").From("schedules sc").Where(where))
	if err != nil {
		return nil, 0, err
	}
	items, err := r.query(ctx, paginate(r.selectSchedules().Where(where), offset, limit))
	return items, total, err
}

// ListBySection returns every schedule of a section
func (r *ScheduleRepository) ListBySection(ctx context.Context, sectionID int64) ([]*models.Schedule, error) {
	return r.query(ctx, r.selectSchedules().Where(squirrel.Eq{"sc.section_id": sectionID}))
}

// ListForStudent returns the weekly timetable of a student's approved enrollments
func (r *ScheduleRepository) ListForStudent(ctx context.Context, studentID int64, schoolYear string, semester *models.Semester) ([]*models.Schedule, error) {
	where := squirrel.And{
		squirrel.Eq{"e.student_id": studentID},
		squirrel.Eq{"e.status": models.EnrollmentApproved},
	}
	if schoolYear != "" {
		where = append(where, squirrel.Eq{"e.school_year": schoolYear})
	}
	if semester != nil {
		where = append(where, squirrel.Eq{"e.semester": *semester})
	}
	return r.query(ctx, r.selectSchedules().
		Join("enrollments e ON e.section_id = sc.section_id").
		Where(where))
}

func (r *ScheduleRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Schedule, error) {
	sql, args, err := q.OrderBy("sc.day_of_week", "sc.start_time", "sc.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list schedules query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing schedules: %w", err)
	}
	defer rows.Close()

	var items []*models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning schedule: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
