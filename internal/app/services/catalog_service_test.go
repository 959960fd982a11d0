package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

func TestCourseCRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	course, err := env.catalog.CreateCourse(ctx, env.admin, &dto.CourseRequest{Code: "bscs", Name: "Computer Science"})
	require.NoError(t, err)
	assert.Equal(t, "BSCS", course.Code)
	assert.True(t, course.IsActive)

	_, err = env.catalog.CreateCourse(ctx, env.admin, &dto.CourseRequest{Code: "BSCS", Name: "Again"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	inactive := false
	updated, err := env.catalog.UpdateCourse(ctx, env.admin, course.ID, &dto.CourseRequest{Code: "BSCS", Name: "BS Computer Science", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	require.NoError(t, env.catalog.DeleteCourse(ctx, env.admin, course.ID))
	_, err = env.catalog.GetCourse(ctx, course.ID)
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)

	logs, _, err := env.store.AdminLogs().List(ctx, models.AdminLogFilter{EntityType: models.EntityCourse}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestDeleteReferencedCourseFails(t *testing.T) {
	env := newTestEnv(t)
	f := env.seedCatalog(t, 10)

	err := env.catalog.DeleteCourse(context.Background(), env.admin, f.course.ID)
	assert.ErrorIs(t, err, apperrors.ErrResourceInUse)
}

func TestSectionValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 2)

	_, err := env.catalog.CreateSection(ctx, env.admin, &dto.SectionRequest{
		CourseID: f.course.ID, Name: "BSIT 1-A", YearLevel: 1, SchoolYear: "2025-2026", Semester: 1, Capacity: 30,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict, "name is unique per term")

	_, err = env.catalog.CreateSection(ctx, env.admin, &dto.SectionRequest{
		CourseID: f.course.ID, Name: "BSIT 1-B", YearLevel: 1, SchoolYear: "2025-2026", Semester: 3, Capacity: 30,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	env.enrolledStudent(t, 1, f)
	env.enrolledStudent(t, 2, f)
	_, err = env.catalog.UpdateSection(ctx, env.admin, f.section.ID, &dto.SectionRequest{
		CourseID: f.course.ID, Name: "BSIT 1-A", YearLevel: 1, SchoolYear: "2025-2026", Semester: 1, Capacity: 1,
	})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestScheduleTimesMustBeOrdered(t *testing.T) {
	env := newTestEnv(t)
	f := env.seedCatalog(t, 10)

	_, err := env.catalog.CreateSchedule(context.Background(), env.admin, &dto.ScheduleRequest{
		SectionID: f.section.ID, SubjectID: f.schedules[0].SubjectID, DayOfWeek: 3, StartTime: "10:00", EndTime: "09:00",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestAssignTeacherRequiresActiveTeacher(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 10)
	student := env.createUser(t, "not-a-teacher@school.test", models.RoleStudent)

	_, err := env.catalog.AssignTeacher(ctx, env.admin, f.schedules[0].ID, &student.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotATeacher)

	missing := int64(999)
	_, err = env.catalog.AssignTeacher(ctx, env.admin, f.schedules[0].ID, &missing)
	assert.ErrorIs(t, err, apperrors.ErrNotATeacher)

	teacher := env.teacher(t, "inactive@school.test")
	require.NoError(t, env.store.Users().SetActive(ctx, teacher.UserID, false))
	_, err = env.catalog.AssignTeacher(ctx, env.admin, f.schedules[0].ID, &teacher.UserID)
	assert.ErrorIs(t, err, apperrors.ErrNotATeacher)

	sc, err := env.catalog.GetSchedule(ctx, f.schedules[0].ID)
	require.NoError(t, err)
	assert.Nil(t, sc.TeacherID)
}

func TestAssignTeacherCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 10)
	schedule := f.schedules[0]

	// approved before any teacher exists: subjects but no grades
	_, e1 := env.enrolledStudent(t, 1, f)
	_, e2 := env.enrolledStudent(t, 2, f)

	first := env.teacher(t, "first@school.test")
	resp, err := env.catalog.AssignTeacher(ctx, env.admin, schedule.ID, &first.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.EnrollmentsProcessed)
	assert.Equal(t, 0, resp.EnrollmentSubjectsCreated, "approval already created the subject rows")
	assert.Equal(t, 2, resp.GradesCreated)
	assert.Equal(t, 0, resp.GradesReassigned)

	grades, _, err := env.store.Grades().List(ctx, models.GradeFilter{ScheduleID: &schedule.ID}, 0, 0)
	require.NoError(t, err)
	require.Len(t, grades, 2)
	for _, g := range grades {
		assert.Equal(t, models.GradeDraft, g.Status)
		assert.Equal(t, first.UserID, *g.TeacherID)
	}

	// finalise the first student's grade
	var finalID int64
	for _, g := range grades {
		if g.EnrollmentID == e1 {
			finalID = g.ID
		}
	}
	_, err = env.grades.UpdateScores(ctx, first, finalID, &dto.UpdateGradeRequest{Q1: score(80), Q2: score(85), Q3: score(90), Q4: score(95)})
	require.NoError(t, err)
	_, err = env.grades.Submit(ctx, first, finalID)
	require.NoError(t, err)
	_, err = env.grades.Approve(ctx, env.admin, finalID)
	require.NoError(t, err)

	second := env.teacher(t, "second@school.test")
	resp, err = env.catalog.AssignTeacher(ctx, env.admin, schedule.ID, &second.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.GradesCreated, "assignment is idempotent")
	assert.Equal(t, 1, resp.GradesReassigned)

	grades, _, err = env.store.Grades().List(ctx, models.GradeFilter{ScheduleID: &schedule.ID}, 0, 0)
	require.NoError(t, err)
	for _, g := range grades {
		switch g.EnrollmentID {
		case e1:
			assert.Equal(t, first.UserID, *g.TeacherID, "approved grades keep their teacher")
		case e2:
			assert.Equal(t, second.UserID, *g.TeacherID)
		}
	}

	logs, _, err := env.store.AdminLogs().List(ctx, models.AdminLogFilter{Action: models.ActionScheduleAssign}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestUnassignTeacherOnlyClearsSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 10)
	schedule := f.schedules[0]
	env.enrolledStudent(t, 1, f)

	teacher := env.teacher(t, "t@school.test")
	_, err := env.catalog.AssignTeacher(ctx, env.admin, schedule.ID, &teacher.UserID)
	require.NoError(t, err)

	resp, err := env.catalog.AssignTeacher(ctx, env.admin, schedule.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, resp.EnrollmentsProcessed)

	sc, err := env.catalog.GetSchedule(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Nil(t, sc.TeacherID)

	grades, _, err := env.store.Grades().List(ctx, models.GradeFilter{ScheduleID: &schedule.ID}, 0, 0)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, teacher.UserID, *grades[0].TeacherID)
}

func TestCreateScheduleWithTeacherRunsCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 10)
	_, enrollmentID := env.enrolledStudent(t, 1, f)
	teacher := env.teacher(t, "new@school.test")

	subject := &models.Subject{Code: "PE1", Name: "Physical Education", Units: 2}
	_, err := env.store.Subjects().Create(ctx, subject)
	require.NoError(t, err)

	sc, err := env.catalog.CreateSchedule(ctx, env.admin, &dto.ScheduleRequest{
		SectionID: f.section.ID, SubjectID: subject.ID, TeacherID: &teacher.UserID,
		DayOfWeek: 5, StartTime: "13:00", EndTime: "15:00",
	})
	require.NoError(t, err)
	assert.Equal(t, teacher.UserID, *sc.TeacherID)

	grades, _, err := env.store.Grades().List(ctx, models.GradeFilter{ScheduleID: &sc.ID, EnrollmentID: &enrollmentID}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, grades, 1)
}
