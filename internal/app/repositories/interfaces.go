package repositories

import (
	"context"
	"time"

	"github.com/yigit/schoolportal/internal/app/models"
)

// List methods take an offset and limit; a zero limit returns every row.

// IUserRepository defines the interface for user-related database operations
type IUserRepository interface {
	Create(ctx context.Context, user *models.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetActive(ctx context.Context, id int64, active bool) error
	MarkEmailVerified(ctx context.Context, id int64) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, filter models.UserFilter, offset, limit uint64) ([]*models.User, int64, error)
}

// ITokenRepository stores refresh tokens
type ITokenRepository interface {
	CreateToken(ctx context.Context, token string, userID int64, expiryDate time.Time) error
	GetToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID int64) error
	CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// IOTPRepository stores hashed one-time codes
type IOTPRepository interface {
	Create(ctx context.Context, code *models.OTPCode) error
	CountSince(ctx context.Context, email string, purpose models.OTPPurpose, since time.Time) (int, error)
	InvalidateActive(ctx context.Context, email string, purpose models.OTPPurpose, at time.Time) error
	GetLatestActive(ctx context.Context, email string, purpose models.OTPPurpose, now time.Time) (*models.OTPCode, error)
	ReserveAttempt(ctx context.Context, id int64, maxAttempts int) (int, error)
	MarkUsed(ctx context.Context, id int64, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// IAddressRepository serves the cascading address reference data
type IAddressRepository interface {
	ListRegions(ctx context.Context) ([]models.Region, error)
	ListProvinces(ctx context.Context, regionCode string) ([]models.Province, error)
	ListCities(ctx context.Context, provinceCode string) ([]models.City, error)
	ListBarangays(ctx context.Context, cityCode string) ([]models.Barangay, error)
	RegionExists(ctx context.Context, code string) (bool, error)
	GetProvince(ctx context.Context, code string) (*models.Province, error)
	GetCity(ctx context.Context, code string) (*models.City, error)
	GetBarangay(ctx context.Context, code string) (*models.Barangay, error)
}

// IStudentRepository stores student profiles and student numbers
type IStudentRepository interface {
	Create(ctx context.Context, student *models.Student) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Student, error)
	UpdateProfile(ctx context.Context, student *models.Student) error
	SetStudentNumber(ctx context.Context, id int64, number string) error
	NextStudentSequence(ctx context.Context, year int) (int, error)
	List(ctx context.Context, filter models.StudentFilter, offset, limit uint64) ([]*models.Student, int64, error)
}

// IApplicationRepository stores admission applications
type IApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*models.Application, error)
	HasStatus(ctx context.Context, studentID int64, status models.ApplicationStatus) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status models.ApplicationStatus, remarks *string, reviewerID int64, at time.Time) error
	List(ctx context.Context, filter models.ApplicationFilter, offset, limit uint64) ([]*models.Application, int64, error)
}

// ICourseRepository stores courses
type ICourseRepository interface {
	Create(ctx context.Context, course *models.Course) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, search string, activeOnly bool, offset, limit uint64) ([]*models.Course, int64, error)
}

// ISubjectRepository stores subjects
type ISubjectRepository interface {
	Create(ctx context.Context, subject *models.Subject) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Subject, error)
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, search string, offset, limit uint64) ([]*models.Subject, int64, error)
}

// ISectionRepository stores sections
type ISectionRepository interface {
	Create(ctx context.Context, section *models.Section) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Section, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Section, error)
	Update(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.SectionFilter, offset, limit uint64) ([]*models.Section, int64, error)
}

// IScheduleRepository stores weekly schedules
type IScheduleRepository interface {
	Create(ctx context.Context, schedule *models.Schedule) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Schedule, error)
	Update(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id int64) error
	SetTeacher(ctx context.Context, id int64, teacherID *int64) error
	List(ctx context.Context, filter models.ScheduleFilter, offset, limit uint64) ([]*models.Schedule, int64, error)
	ListBySection(ctx context.Context, sectionID int64) ([]*models.Schedule, error)
	ListForStudent(ctx context.Context, studentID int64, schoolYear string, semester *models.Semester) ([]*models.Schedule, error)
}

// IEnrollmentRepository stores enrollments and their subject rows
type IEnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Enrollment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Enrollment, error)
	HasActiveForTerm(ctx context.Context, studentID int64, schoolYear string, semester models.Semester) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus, remarks *string, reviewerID int64, at time.Time) error
	List(ctx context.Context, filter models.EnrollmentFilter, offset, limit uint64) ([]*models.Enrollment, int64, error)
	ListApprovedBySection(ctx context.Context, sectionID int64) ([]*models.Enrollment, error)
	CountApprovedBySection(ctx context.Context, sectionID int64) (int, error)
	EnsureSubject(ctx context.Context, enrollmentID, scheduleID int64) (id int64, created bool, err error)
	ListRoster(ctx context.Context, scheduleID int64) ([]models.RosterEntry, error)
}

// IGradeRepository stores grade rows
type IGradeRepository interface {
	EnsureDraft(ctx context.Context, enrollmentSubjectID int64, teacherID *int64) (bool, error)
	ReassignUnfinalized(ctx context.Context, scheduleID int64, teacherID *int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Grade, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Grade, error)
	Save(ctx context.Context, grade *models.Grade) error
	List(ctx context.Context, filter models.GradeFilter, offset, limit uint64) ([]*models.Grade, int64, error)
	DeleteEmptyDrafts(ctx context.Context, enrollmentID int64) (int64, error)
}

// IDocumentRepository stores uploaded document metadata
type IDocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Document, error)
	UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus, remarks *string, reviewerID int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.DocumentFilter, offset, limit uint64) ([]*models.Document, int64, error)
}

// IAdminLogRepository stores the admin audit trail
type IAdminLogRepository interface {
	Create(ctx context.Context, entry *models.AdminLog) error
	List(ctx context.Context, filter models.AdminLogFilter, offset, limit uint64) ([]*models.AdminLog, int64, error)
}

// IDashboardRepository aggregates admin dashboard counters
type IDashboardRepository interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}
