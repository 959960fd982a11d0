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

type gradeFixture struct {
	env      *testEnv
	f        *catalogFixture
	teacher  Actor
	schedule *models.Schedule
	student  *models.User
	gradeID  int64
}

func newGradeFixture(t *testing.T) *gradeFixture {
	t.Helper()
	env := newTestEnv(t)
	f := env.seedCatalog(t, 10)
	teacher := env.teacher(t, "teacher@school.test")
	_, err := env.catalog.AssignTeacher(context.Background(), env.admin, f.schedules[0].ID, &teacher.UserID)
	require.NoError(t, err)

	student, enrollmentID := env.enrolledStudent(t, 1, f)
	grades, _, err := env.store.Grades().List(context.Background(), models.GradeFilter{EnrollmentID: &enrollmentID}, 0, 0)
	require.NoError(t, err)
	require.Len(t, grades, 1)

	return &gradeFixture{env: env, f: f, teacher: teacher, schedule: f.schedules[0], student: student, gradeID: grades[0].ID}
}

func (gf *gradeFixture) fill(t *testing.T, gradeID int64, q float64) {
	t.Helper()
	_, err := gf.env.grades.UpdateScores(context.Background(), gf.teacher, gradeID, &dto.UpdateGradeRequest{
		Q1: score(q), Q2: score(q), Q3: score(q), Q4: score(q),
	})
	require.NoError(t, err)
}

func TestUpdateScoresComputesFinal(t *testing.T) {
	gf := newGradeFixture(t)
	ctx := context.Background()

	g, err := gf.env.grades.UpdateScores(ctx, gf.teacher, gf.gradeID, &dto.UpdateGradeRequest{Q1: score(80), Q2: score(75)})
	require.NoError(t, err)
	assert.Nil(t, g.FinalGrade)
	assert.Equal(t, models.RemarksIncomplete, g.Remarks)

	g, err = gf.env.grades.UpdateScores(ctx, gf.teacher, gf.gradeID, &dto.UpdateGradeRequest{Q3: score(70), Q4: score(74)})
	require.NoError(t, err)
	require.NotNil(t, g.FinalGrade)
	assert.InDelta(t, 74.75, *g.FinalGrade, 0.001)
	assert.Equal(t, models.RemarksFailed, g.Remarks)
	assert.Equal(t, 80.0, *g.Q1, "omitted quarters stay unchanged")

	other := gf.env.teacher(t, "other@school.test")
	_, err = gf.env.grades.UpdateScores(ctx, other, gf.gradeID, &dto.UpdateGradeRequest{Q1: score(99)})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = gf.env.grades.UpdateScores(ctx, gf.teacher, gf.gradeID, &dto.UpdateGradeRequest{Q1: score(101)})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestGradeWorkflow(t *testing.T) {
	gf := newGradeFixture(t)
	ctx := context.Background()
	env := gf.env

	_, err := env.grades.Submit(ctx, gf.teacher, gf.gradeID)
	assert.ErrorIs(t, err, apperrors.ErrGradeIncomplete)

	gf.fill(t, gf.gradeID, 90)
	g, err := env.grades.Submit(ctx, gf.teacher, gf.gradeID)
	require.NoError(t, err)
	assert.Equal(t, models.GradeSubmitted, g.Status)
	assert.NotNil(t, g.SubmittedAt)

	_, err = env.grades.UpdateScores(ctx, gf.teacher, gf.gradeID, &dto.UpdateGradeRequest{Q1: score(50)})
	assert.ErrorIs(t, err, apperrors.ErrGradeNotEditable)

	_, err = env.grades.Reject(ctx, env.admin, gf.gradeID, "  ")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	g, err = env.grades.Reject(ctx, env.admin, gf.gradeID, "Q2 looks wrong")
	require.NoError(t, err)
	assert.Equal(t, models.GradeRejected, g.Status)
	assert.Equal(t, "Q2 looks wrong", *g.RejectionReason)

	gf.fill(t, gf.gradeID, 92)
	g, err = env.grades.Submit(ctx, gf.teacher, gf.gradeID)
	require.NoError(t, err)
	assert.Nil(t, g.RejectionReason)

	_, err = env.grades.Lock(ctx, env.admin, gf.gradeID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidGradeTransition)

	g, err = env.grades.Approve(ctx, env.admin, gf.gradeID)
	require.NoError(t, err)
	assert.Equal(t, models.GradeApproved, g.Status)
	assert.Equal(t, env.admin.UserID, *g.ApprovedBy)
	assert.Equal(t, models.RemarksPassed, g.Remarks)

	g, err = env.grades.Lock(ctx, env.admin, gf.gradeID)
	require.NoError(t, err)
	assert.Equal(t, models.GradeLocked, g.Status)

	g, err = env.grades.Unlock(ctx, env.admin, gf.gradeID)
	require.NoError(t, err)
	assert.Equal(t, models.GradeApproved, g.Status)
	assert.Nil(t, g.LockedBy)

	logs, _, err := env.store.AdminLogs().List(ctx, models.AdminLogFilter{EntityType: models.EntityGrade}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 4, "reject, approve, lock and unlock are logged")
}

func TestStudentsSeeOnlyFinalGrades(t *testing.T) {
	gf := newGradeFixture(t)
	ctx := context.Background()

	grades, err := gf.env.grades.StudentGrades(ctx, gf.student.ID, "")
	require.NoError(t, err)
	assert.Empty(t, grades)

	gf.fill(t, gf.gradeID, 85)
	_, err = gf.env.grades.Submit(ctx, gf.teacher, gf.gradeID)
	require.NoError(t, err)
	grades, err = gf.env.grades.StudentGrades(ctx, gf.student.ID, "")
	require.NoError(t, err)
	assert.Empty(t, grades)

	_, err = gf.env.grades.Approve(ctx, gf.env.admin, gf.gradeID)
	require.NoError(t, err)
	grades, err = gf.env.grades.StudentGrades(ctx, gf.student.ID, "2025-2026")
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, "IT101", grades[0].SubjectCode)
}

func TestBulkSubmitAndLock(t *testing.T) {
	gf := newGradeFixture(t)
	ctx := context.Background()
	env := gf.env
	env.enrolledStudent(t, 2, gf.f)
	env.enrolledStudent(t, 3, gf.f)

	grades, _, err := env.store.Grades().List(ctx, models.GradeFilter{ScheduleID: &gf.schedule.ID}, 0, 0)
	require.NoError(t, err)
	require.Len(t, grades, 3)
	gf.fill(t, grades[0].ID, 80)
	gf.fill(t, grades[1].ID, 70)

	_, err = env.grades.BulkSubmit(ctx, env.teacher(t, "intruder@school.test"), gf.schedule.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	result, err := env.grades.BulkSubmit(ctx, gf.teacher, gf.schedule.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{grades[0].ID, grades[1].ID}, result.Processed)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, grades[2].ID, result.Skipped[0].GradeID)

	_, err = env.grades.Approve(ctx, env.admin, grades[0].ID)
	require.NoError(t, err)

	locked, err := env.grades.BulkLock(ctx, env.admin, gf.schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{grades[0].ID}, locked.Processed)
	assert.Len(t, locked.Skipped, 2)

	g, err := env.grades.GetGrade(ctx, env.admin, grades[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.GradeLocked, g.Status)
}

func TestTeacherListsOnlyOwnGrades(t *testing.T) {
	gf := newGradeFixture(t)
	ctx := context.Background()
	other := gf.env.teacher(t, "other@school.test")

	page, err := gf.env.grades.ListGrades(ctx, other, models.GradeFilter{}, PageRequest{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.TotalItems)

	page, err = gf.env.grades.ListGrades(ctx, gf.teacher, models.GradeFilter{}, PageRequest{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.TotalItems)

	_, err = gf.env.grades.GetGrade(ctx, other, gf.gradeID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}
