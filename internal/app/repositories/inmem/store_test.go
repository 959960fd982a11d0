package inmem

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	users := store.Users()

	boom := errors.New("boom")
	err := store.TxManager().WithTransaction(ctx, func(ctx context.Context) error {
		_, err := users.Create(ctx, &models.User{Email: "a@school.test", RoleType: models.RoleStudent})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := users.EmailExists(ctx, "a@school.test")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWithTransaction_NestedJoinsOuter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	tx := store.TxManager()

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		return tx.WithTransaction(ctx, func(ctx context.Context) error {
			_, err := store.Users().Create(ctx, &models.User{Email: "b@school.test"})
			return err
		})
	})
	require.NoError(t, err)

	u, err := store.Users().GetByEmail(ctx, "B@School.test")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
}

func TestUserRepository_DuplicateEmailIgnoresCase(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_, err := store.Users().Create(ctx, &models.User{Email: "c@school.test"})
	require.NoError(t, err)

	_, err = store.Users().Create(ctx, &models.User{Email: "C@SCHOOL.TEST"})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestEnrollmentRepository_OneActivePerTerm(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	courseID, err := store.Courses().Create(ctx, &models.Course{Code: "BSIT", Name: "IT", IsActive: true})
	require.NoError(t, err)
	sectionID, err := store.Sections().Create(ctx, &models.Section{CourseID: courseID, Name: "1-A", YearLevel: 1, SchoolYear: "2025-2026", Semester: 1, Capacity: 2})
	require.NoError(t, err)

	repo := store.Enrollments()
	first := &models.Enrollment{StudentID: 7, SectionID: sectionID, SchoolYear: "2025-2026", Semester: 1}
	_, err = repo.Create(ctx, first)
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.Enrollment{StudentID: 7, SectionID: sectionID, SchoolYear: "2025-2026", Semester: 1})
	assert.ErrorIs(t, err, apperrors.ErrEnrollmentExists)

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, models.EnrollmentDropped, nil, 1, first.CreatedAt))
	_, err = repo.Create(ctx, &models.Enrollment{StudentID: 7, SectionID: sectionID, SchoolYear: "2025-2026", Semester: 1})
	assert.NoError(t, err)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, page(items, 2, 2))
	assert.Equal(t, []int{5}, page(items, 4, 10))
	assert.Equal(t, []int{}, page(items, 9, 1))
	assert.Equal(t, items, page(items, 0, 0))
}
