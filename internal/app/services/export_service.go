package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/pkg/export"
)

const exportDateLayout = "2006-01-02"

// ExportService builds report tables for CSV and Excel downloads
type ExportService struct {
	studentRepo    repositories.IStudentRepository
	enrollmentRepo repositories.IEnrollmentRepository
	grades         *GradeService
	audit          *AuditService
}

// NewExportService creates a new ExportService
func NewExportService(
	studentRepo repositories.IStudentRepository,
	enrollmentRepo repositories.IEnrollmentRepository,
	grades *GradeService,
	audit *AuditService,
) *ExportService {
	return &ExportService{
		studentRepo:    studentRepo,
		enrollmentRepo: enrollmentRepo,
		grades:         grades,
		audit:          audit,
	}
}

// Students builds the student masterlist
func (s *ExportService) Students(ctx context.Context, actor Actor, filter models.StudentFilter) (export.Table, error) {
	students, _, err := s.studentRepo.List(ctx, filter, 0, 0)
	if err != nil {
		return export.Table{}, fmt.Errorf("error loading students: %w", err)
	}

	t := export.Table{
		Title:   "Students",
		Headers: []string{"Student Number", "Last Name", "First Name", "Email", "Gender", "Birth Date", "Phone", "Guardian", "Guardian Phone", "Registered"},
		Rows:    make([][]string, 0, len(students)),
	}
	for _, st := range students {
		var lastName, firstName, email string
		if st.User != nil {
			lastName, firstName, email = st.User.LastName, st.User.FirstName, st.User.Email
		}
		t.Rows = append(t.Rows, []string{
			deref(st.StudentNumber),
			lastName,
			firstName,
			email,
			deref(st.Gender),
			formatDate(st.BirthDate),
			deref(st.Phone),
			deref(st.GuardianName),
			deref(st.GuardianPhone),
			st.CreatedAt.Format(exportDateLayout),
		})
	}
	return t, s.recordExport(ctx, actor, "students", len(t.Rows))
}

// Enrollments builds the enrollment report
func (s *ExportService) Enrollments(ctx context.Context, actor Actor, filter models.EnrollmentFilter) (export.Table, error) {
	enrollments, _, err := s.enrollmentRepo.List(ctx, filter, 0, 0)
	if err != nil {
		return export.Table{}, fmt.Errorf("error loading enrollments: %w", err)
	}

	t := export.Table{
		Title:   "Enrollments",
		Headers: []string{"Student Number", "Student Name", "Course", "Section", "School Year", "Semester", "Status", "Requested", "Reviewed"},
		Rows:    make([][]string, 0, len(enrollments)),
	}
	for _, e := range enrollments {
		t.Rows = append(t.Rows, []string{
			e.StudentNumber,
			e.StudentName,
			e.CourseCode,
			e.SectionName,
			e.SchoolYear,
			strconv.Itoa(int(e.Semester)),
			string(e.Status),
			e.CreatedAt.Format(exportDateLayout),
			formatDate(e.ReviewedAt),
		})
	}
	return t, s.recordExport(ctx, actor, "enrollments", len(t.Rows))
}

// GradeSheet builds the grade sheet of one schedule
func (s *ExportService) GradeSheet(ctx context.Context, actor Actor, scheduleID int64) (export.Table, error) {
	schedule, grades, err := s.grades.ScheduleGrades(ctx, scheduleID)
	if err != nil {
		return export.Table{}, err
	}

	t := export.Table{
		Title:   fmt.Sprintf("%s %s", schedule.SectionName, schedule.SubjectCode),
		Headers: []string{"Student Number", "Student Name", "Q1", "Q2", "Q3", "Q4", "Final Grade", "Remarks", "Status"},
		Rows:    make([][]string, 0, len(grades)),
	}
	for _, g := range grades {
		t.Rows = append(t.Rows, []string{
			g.StudentNumber,
			g.StudentName,
			formatScore(g.Q1),
			formatScore(g.Q2),
			formatScore(g.Q3),
			formatScore(g.Q4),
			formatScore(g.FinalGrade),
			string(g.Remarks),
			string(g.Status),
		})
	}
	return t, s.recordExport(ctx, actor, "grade_sheet", len(t.Rows), "scheduleId", scheduleID)
}

func (s *ExportService) recordExport(ctx context.Context, actor Actor, report string, rows int, extra ...interface{}) error {
	details := map[string]interface{}{"report": report, "rows": rows}
	for i := 0; i+1 < len(extra); i += 2 {
		details[fmt.Sprint(extra[i])] = extra[i+1]
	}
	return s.audit.Record(ctx, actor, models.ActionExport, models.EntityExport, nil, details)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(exportDateLayout)
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
