package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/repositories/inmem"
	"github.com/yigit/schoolportal/internal/pkg/auth"
)

// fakeMailer records what would have been sent
type fakeMailer struct {
	mu            sync.Mutex
	codes         map[string]string
	tempPasswords map[string]string
	welcomed      []string
	otpErr        error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{codes: map[string]string{}, tempPasswords: map[string]string{}}
}

func (m *fakeMailer) SendOTPEmail(_ context.Context, toEmail, _, code, purpose string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.otpErr != nil {
		return m.otpErr
	}
	m.codes[purpose+":"+toEmail] = code
	return nil
}

func (m *fakeMailer) SendWelcomeEmail(_ context.Context, toEmail, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomed = append(m.welcomed, toEmail)
	return nil
}

func (m *fakeMailer) SendTemporaryPasswordEmail(_ context.Context, toEmail, _, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tempPasswords[toEmail] = password
	return nil
}

func (m *fakeMailer) code(purpose models.OTPPurpose, email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[string(purpose)+":"+email]
}

type testEnv struct {
	store       *inmem.Store
	mailer      *fakeMailer
	audit       *AuditService
	otp         *OTPService
	auth        *AuthService
	users       UserService
	addresses   *AddressService
	students    *StudentService
	catalog     *CatalogService
	enrollments *EnrollmentService
	grades      *GradeService
	admin       Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := inmem.NewStore()
	tx := store.TxManager()
	lg := zerolog.Nop()
	mailer := newFakeMailer()

	audit := NewAuditService(store.AdminLogs(), lg)
	otp := NewOTPService(store.OTPCodes(), mailer, OTPSettings{
		Length:        6,
		TTL:           10 * time.Minute,
		MaxAttempts:   3,
		MaxRequests:   3,
		RequestWindow: time.Hour,
	}, lg)
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret-key-with-enough-length",
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "schoolportal-test",
	})
	addresses := NewAddressService(store.Addresses())

	env := &testEnv{
		store:     store,
		mailer:    mailer,
		audit:     audit,
		otp:       otp,
		auth:      NewAuthService(store.Users(), store.Students(), store.Tokens(), otp, tx, jwtService, lg),
		users:     NewUserService(store.Users(), store.Students(), store.Tokens(), audit, mailer, tx, lg),
		addresses: addresses,
		students:  NewStudentService(store.Students(), store.Applications(), store.Courses(), addresses, audit, tx, lg),
		catalog: NewCatalogService(store.Courses(), store.Subjects(), store.Sections(), store.Schedules(),
			store.Enrollments(), store.Grades(), store.Users(), audit, tx, lg),
		enrollments: NewEnrollmentService(store.Enrollments(), store.Students(), store.Applications(),
			store.Sections(), store.Schedules(), store.Grades(), audit, tx, lg),
		grades: NewGradeService(store.Grades(), store.Schedules(), store.Students(), audit, tx, 0, lg),
	}
	env.admin = Actor{UserID: env.createUser(t, "admin@school.test", models.RoleAdmin).ID, Role: models.RoleAdmin, IP: "127.0.0.1"}
	return env
}

// createUser inserts an active, verified account without going through bcrypt
func (e *testEnv) createUser(t *testing.T, email string, role models.RoleType) *models.User {
	t.Helper()
	u := &models.User{
		Email:         email,
		Password:      "x",
		FirstName:     "Test",
		LastName:      string(role),
		RoleType:      role,
		IsActive:      true,
		EmailVerified: true,
	}
	_, err := e.store.Users().Create(context.Background(), u)
	require.NoError(t, err)
	if role == models.RoleStudent {
		_, err := e.store.Students().Create(context.Background(), &models.Student{UserID: u.ID})
		require.NoError(t, err)
	}
	return u
}

func (e *testEnv) teacher(t *testing.T, email string) Actor {
	t.Helper()
	u := e.createUser(t, email, models.RoleTeacher)
	return Actor{UserID: u.ID, Role: models.RoleTeacher}
}

// catalogFixture is one course with a section of the given capacity and two subjects scheduled in it
type catalogFixture struct {
	course    *models.Course
	section   *models.Section
	schedules []*models.Schedule
}

func (e *testEnv) seedCatalog(t *testing.T, capacity int) *catalogFixture {
	t.Helper()
	ctx := context.Background()
	course := &models.Course{Code: "BSIT", Name: "Information Technology", IsActive: true}
	_, err := e.store.Courses().Create(ctx, course)
	require.NoError(t, err)

	section := &models.Section{CourseID: course.ID, Name: "BSIT 1-A", YearLevel: 1, SchoolYear: "2025-2026", Semester: models.SemesterFirst, Capacity: capacity}
	_, err = e.store.Sections().Create(ctx, section)
	require.NoError(t, err)

	f := &catalogFixture{course: course, section: section}
	for i, code := range []string{"IT101", "IT102"} {
		subject := &models.Subject{Code: code, Name: "Subject " + code, Units: 3}
		_, err := e.store.Subjects().Create(ctx, subject)
		require.NoError(t, err)
		sc := &models.Schedule{
			SectionID: section.ID,
			SubjectID: subject.ID,
			DayOfWeek: i + 1,
			StartTime: "08:00",
			EndTime:   "09:30",
		}
		_, err = e.store.Schedules().Create(ctx, sc)
		require.NoError(t, err)
		f.schedules = append(f.schedules, sc)
	}
	return f
}

// admittedStudent creates a student with an approved application for the fixture's course
func (e *testEnv) admittedStudent(t *testing.T, n int, f *catalogFixture) *models.User {
	t.Helper()
	ctx := context.Background()
	u := e.createUser(t, fmt.Sprintf("student%d@school.test", n), models.RoleStudent)
	app, err := e.students.SubmitApplication(ctx, u.ID, &dto.CreateApplicationRequest{CourseID: f.course.ID, SchoolYear: "2025-2026", YearLevel: 1})
	require.NoError(t, err)
	_, err = e.students.ReviewApplication(ctx, e.admin, app.ID, &dto.ReviewRequest{Status: "APPROVED"})
	require.NoError(t, err)
	return u
}

// enrolledStudent admits a student and approves an enrollment into the fixture's section
func (e *testEnv) enrolledStudent(t *testing.T, n int, f *catalogFixture) (*models.User, int64) {
	t.Helper()
	ctx := context.Background()
	u := e.admittedStudent(t, n, f)
	enrollment, err := e.enrollments.Request(ctx, u.ID, &dto.CreateEnrollmentRequest{SectionID: f.section.ID})
	require.NoError(t, err)
	_, err = e.enrollments.Approve(ctx, e.admin, enrollment.ID, nil)
	require.NoError(t, err)
	return u, enrollment.ID
}

func score(v float64) *float64 { return &v }

func fixedFuture() time.Time { return time.Now().Add(24 * time.Hour) }
