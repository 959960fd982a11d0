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

const studentColumns = `s.id, s.user_id, s.student_number, s.birth_date, s.gender, s.phone, s.guardian_name,
	s.guardian_phone, s.street, s.region_code, s.province_code, s.city_code, s.barangay_code,
	s.created_at, s.updated_at, u.id, u.email, u.first_name, u.last_name, u.role_type, u.is_active,
	u.email_verified, u.created_at`

// StudentRepository handles student profile persistence
type StudentRepository struct {
	baseRepository
}

var _ IStudentRepository = (*StudentRepository)(nil)

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(database *db.PostgresDB) *StudentRepository {
	return &StudentRepository{baseRepository: newBaseRepository(database)}
}

func scanStudent(row scanner) (*models.Student, error) {
	s := &models.Student{User: &models.User{}}
	err := row.Scan(&s.ID, &s.UserID, &s.StudentNumber, &s.BirthDate, &s.Gender, &s.Phone, &s.GuardianName,
		&s.GuardianPhone, &s.Street, &s.RegionCode, &s.ProvinceCode, &s.CityCode, &s.BarangayCode,
		&s.CreatedAt, &s.UpdatedAt, &s.User.ID, &s.User.Email, &s.User.FirstName, &s.User.LastName,
		&s.User.RoleType, &s.User.IsActive, &s.User.EmailVerified, &s.User.CreatedAt)
	return s, err
}

func (r *StudentRepository) selectStudents() squirrel.SelectBuilder {
	return r.sb.Select(studentColumns).From("students s").Join("users u ON u.id = s.user_id")
}

// Create inserts an empty profile for a user
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (int64, error) {
	now := time.Now()
	sql, args, err := r.sb.Insert("students").
		Columns("user_id", "student_number", "birth_date", "gender", "phone", "guardian_name", "guardian_phone",
			"street", "region_code", "province_code", "city_code", "barangay_code", "created_at", "updated_at").
		Values(student.UserID, student.StudentNumber, student.BirthDate, student.Gender, student.Phone,
			student.GuardianName, student.GuardianPhone, student.Street, student.RegionCode, student.ProvinceCode,
			student.CityCode, student.BarangayCode, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create student query: %w", err)
	}

	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&student.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "students_user_id_key") {
			return 0, apperrors.NewConflictError("student profile already exists for this user")
		}
		if dberrors.IsDuplicateConstraintError(err, "students_student_number_key") {
			return 0, apperrors.ErrStudentNumberExists
		}
		logger.Error().Err(err).Int64("userID", student.UserID).Msg("Error creating student")
		return 0, fmt.Errorf("error creating student: %w", err)
	}
	student.CreatedAt, student.UpdatedAt = now, now
	return student.ID, nil
}

// GetByID retrieves a student with its user
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"s.id": id})
}

// GetByUserID retrieves the profile of a user
func (r *StudentRepository) GetByUserID(ctx context.Context, userID int64) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"s.user_id": userID})
}

func (r *StudentRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Student, error) {
	sql, args, err := r.selectStudents().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}
	s, err := scanStudent(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return s, nil
}

// UpdateProfile saves personal, guardian and address fields
func (r *StudentRepository) UpdateProfile(ctx context.Context, student *models.Student) error {
	sql, args, err := r.sb.Update("students").
		SetMap(map[string]interface{}{
			"birth_date":     student.BirthDate,
			"gender":         student.Gender,
			"phone":          student.Phone,
			"guardian_name":  student.GuardianName,
			"guardian_phone": student.GuardianPhone,
			"street":         student.Street,
			"region_code":    student.RegionCode,
			"province_code":  student.ProvinceCode,
			"city_code":      student.CityCode,
			"barangay_code":  student.BarangayCode,
			"updated_at":     time.Now(),
		}).
		Where(squirrel.Eq{"id": student.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update student query: %w", err)
	}

	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrInvalidAddress
		}
		return fmt.Errorf("error updating student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// SetStudentNumber assigns the student number
func (r *StudentRepository) SetStudentNumber(ctx context.Context, id int64, number string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE students SET student_number = $1, updated_at = NOW() WHERE id = $2`, number, id)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "students_student_number_key") {
			return apperrors.ErrStudentNumberExists
		}
		return fmt.Errorf("error setting student number: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// NextStudentSequence atomically increments the per-year counter.
// The row lock is held until the surrounding transaction ends.
func (r *StudentRepository) NextStudentSequence(ctx context.Context, year int) (int, error) {
	var next int
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO student_number_counters (year, last_value) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = student_number_counters.last_value + 1
		RETURNING last_value`, year).Scan(&next)
	if err != nil {
		logger.Error().Err(err).Int("year", year).Msg("Error incrementing student number counter")
		return 0, fmt.Errorf("error generating student number: %w", err)
	}
	return next, nil
}

// List returns students with their user, ordered by last name
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter, offset, limit uint64) ([]*models.Student, int64, error) {
	where := squirrel.And{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		p := likePattern(s)
		where = append(where, squirrel.Or{
			squirrel.ILike{"u.email": p},
			squirrel.ILike{"u.first_name": p},
			squirrel.ILike{"u.last_name": p},
			squirrel.ILike{"s.student_number": p},
		})
	}
	if filter.HasNumber != nil {
		if *filter.HasNumber {
			where = append(where, squirrel.NotEq{"s.student_number": nil})
		} else {
			where = append(where, squirrel.Eq{"s.student_number": nil})
		}
	}
	if filter.CourseID != nil || filter.SchoolYear != "" {
		app := squirrel.And{squirrel.Expr("a.student_id = s.id"), squirrel.Eq{"a.status": models.ApplicationApproved}}
		if filter.CourseID != nil {
			app = append(app, squirrel.Eq{"a.course_id": *filter.CourseID})
		}
		if filter.SchoolYear != "" && !filter.EnrolledOnly {
			app = append(app, squirrel.Eq{"a.school_year": filter.SchoolYear})
		}
		sub, args, err := app.ToSql()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to build student filter: %w", err)
		}
		where = append(where, squirrel.Expr("EXISTS (SELECT 1 FROM applications a WHERE "+sub+")", args...))
	}
	if filter.EnrolledOnly {
		enr := squirrel.And{squirrel.Expr("e.student_id = s.id"), squirrel.Eq{"e.status": models.EnrollmentApproved}}
		if filter.SchoolYear != "" {
			enr = append(enr, squirrel.Eq{"e.school_year": filter.SchoolYear})
		}
		sub, args, err := enr.ToSql()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to build student filter: %w", err)
		}
		where = append(where, squirrel.Expr("EXISTS (SELECT 1 FROM enrollments e WHERE "+sub+")", args...))
	}

	total, err := r.countRows(ctx, r.sb.Select("COUNT(*)").From("students s").Join("users u ON u.id = s.user_id").Where(where))
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := paginate(r.selectStudents().Where(where).OrderBy("u.last_name", "u.first_name", "s.id"), offset, limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list students query: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning student: %w", err)
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}
