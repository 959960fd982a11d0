package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

func TestEnrollmentRequiresAdmission(t *testing.T) {
	env := newTestEnv(t)
	f := env.seedCatalog(t, 10)
	user := env.createUser(t, "walkin@school.test", models.RoleStudent)

	_, err := env.enrollments.Request(context.Background(), user.ID, &dto.CreateEnrollmentRequest{SectionID: f.section.ID})
	assert.ErrorIs(t, err, apperrors.ErrNotAdmitted)
}

func TestOneActiveEnrollmentPerTerm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 10)
	user := env.admittedStudent(t, 1, f)

	first, err := env.enrollments.Request(ctx, user.ID, &dto.CreateEnrollmentRequest{SectionID: f.section.ID})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPending, first.Status)

	_, err = env.enrollments.Request(ctx, user.ID, &dto.CreateEnrollmentRequest{SectionID: f.section.ID})
	assert.ErrorIs(t, err, apperrors.ErrEnrollmentExists)

	_, err = env.enrollments.Review(ctx, env.admin, first.ID, &dto.ReviewRequest{Status: "REJECTED", Remarks: "incomplete documents"})
	require.NoError(t, err)

	_, err = env.enrollments.Request(ctx, user.ID, &dto.CreateEnrollmentRequest{SectionID: f.section.ID})
	assert.NoError(t, err, "a rejected enrollment frees the term")
}

func TestApproveRespectsCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 1)

	a := env.admittedStudent(t, 1, f)
	b := env.admittedStudent(t, 2, f)
	ea, err := env.enrollments.Request(ctx, a.ID, &dto.CreateEnrollmentRequest{SectionID: f.section.ID})
	require.NoError(t, err)
	eb, err := env.enrollments.Request(ctx, b.ID, &dto.CreateEnrollmentRequest{SectionID: f.section.ID})
	require.NoError(t, err)

	_, err = env.enrollments.Approve(ctx, env.admin, ea.ID, nil)
	require.NoError(t, err)
	_, err = env.enrollments.Approve(ctx, env.admin, eb.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrSectionFull)

	_, err = env.enrollments.Approve(ctx, env.admin, ea.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrEnrollmentNotPending)

	still, err := env.enrollments.GetEnrollment(ctx, eb.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPending, still.Status)
}

func TestApproveCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 10)
	teacher := env.teacher(t, "teacher@school.test")
	_, err := env.catalog.AssignTeacher(ctx, env.admin, f.schedules[0].ID, &teacher.UserID)
	require.NoError(t, err)

	user := env.admittedStudent(t, 1, f)
	enrollment, err := env.enrollments.Request(ctx, user.ID, &dto.CreateEnrollmentRequest{SectionID: f.section.ID})
	require.NoError(t, err)

	resp, err := env.enrollments.Approve(ctx, env.admin, enrollment.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.EnrollmentSubjectsCreated)
	assert.Equal(t, 1, resp.GradesCreated, "only schedules with a teacher get a grade row")

	schedule, err := env.enrollments.MySchedule(ctx, user.ID, "2025-2026", nil)
	require.NoError(t, err)
	assert.Len(t, schedule, 2)

	_, err = env.enrollments.Roster(ctx, env.teacher(t, "other@school.test"), f.schedules[0].ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	roster, err := env.enrollments.Roster(ctx, teacher, f.schedules[0].ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, user.Email, roster[0].Email)
}

func TestDropRemovesOnlyEmptyDrafts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 10)
	teacher := env.teacher(t, "teacher@school.test")
	for _, sc := range f.schedules {
		_, err := env.catalog.AssignTeacher(ctx, env.admin, sc.ID, &teacher.UserID)
		require.NoError(t, err)
	}
	user, enrollmentID := env.enrolledStudent(t, 1, f)

	grades, _, err := env.store.Grades().List(ctx, models.GradeFilter{EnrollmentID: &enrollmentID}, 0, 0)
	require.NoError(t, err)
	require.Len(t, grades, 2)
	_, err = env.grades.UpdateScores(ctx, teacher, grades[0].ID, &dto.UpdateGradeRequest{Q1: score(88)})
	require.NoError(t, err)

	_, err = env.enrollments.Drop(ctx, env.admin, 999, nil)
	assert.ErrorIs(t, err, apperrors.ErrEnrollmentNotFound)

	resp, err := env.enrollments.Review(ctx, env.admin, enrollmentID, &dto.ReviewRequest{Status: "DROPPED"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.GradesRemoved)

	grades, _, err = env.store.Grades().List(ctx, models.GradeFilter{EnrollmentID: &enrollmentID}, 0, 0)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.True(t, grades[0].HasScores())

	_, err = env.enrollments.Drop(ctx, env.admin, enrollmentID, nil)
	assert.ErrorIs(t, err, apperrors.ErrEnrollmentNotApproved)

	mine, err := env.enrollments.MyEnrollments(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.EnrollmentDropped, mine[0].Status)
}

func TestReviewRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.enrollments.Review(context.Background(), env.admin, 1, &dto.ReviewRequest{Status: "MAYBE"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestConcurrentApprovalsOfOneEnrollment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 10)
	user := env.admittedStudent(t, 1, f)
	e, err := env.enrollments.Request(ctx, user.ID, &dto.CreateEnrollmentRequest{SectionID: f.section.ID})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.enrollments.Approve(ctx, env.admin, e.ID, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				approved++
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrEnrollmentNotPending)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, approved)

	_, total, err := env.store.AdminLogs().List(ctx, models.AdminLogFilter{Action: string(models.ActionEnrollmentApprove)}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
