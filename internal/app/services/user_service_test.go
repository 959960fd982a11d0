package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/auth"
)

func TestCreateUserWithTemporaryPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.users.CreateUser(ctx, env.admin, &dto.CreateUserRequest{
		Email: "Teacher@School.test", FirstName: "Maria", LastName: "Santos", RoleType: "TEACHER",
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher@school.test", resp.Email)
	assert.True(t, resp.EmailVerified)

	temp := env.mailer.tempPasswords["teacher@school.test"]
	require.NotEmpty(t, temp)
	stored, err := env.store.Users().GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(stored.Password, temp))

	logs, _, err := env.store.AdminLogs().List(ctx, models.AdminLogFilter{Action: models.ActionUserCreate}, 0, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, resp.ID, *logs[0].EntityID)
}

func TestCreateStudentUserGetsProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.users.CreateUser(ctx, env.admin, &dto.CreateUserRequest{
		Email: "kid@school.test", Password: "secret123", FirstName: "Ana", LastName: "Reyes", RoleType: "STUDENT",
	})
	require.NoError(t, err)
	_, err = env.store.Students().GetByUserID(ctx, resp.ID)
	assert.NoError(t, err)
	assert.Contains(t, env.mailer.welcomed, "kid@school.test")
}

func TestCreateUserDuplicateEmailLeavesNoAuditEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.users.CreateUser(ctx, env.admin, &dto.CreateUserRequest{
		Email: "admin@school.test", Password: "secret123", FirstName: "A", LastName: "B", RoleType: "ADMIN",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	_, total, err := env.store.AdminLogs().List(ctx, models.AdminLogFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSetActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, "t@school.test", models.RoleTeacher)
	require.NoError(t, env.store.Tokens().CreateToken(ctx, "tok-1", teacher.ID, fixedFuture()))

	_, err := env.users.SetActive(ctx, env.admin, env.admin.UserID, false)
	assert.ErrorIs(t, err, apperrors.ErrCannotModifySelf)

	resp, err := env.users.SetActive(ctx, env.admin, teacher.ID, false)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	token, err := env.store.Tokens().GetToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, token.IsRevoked)

	resp, err = env.users.SetActive(ctx, env.admin, teacher.ID, true)
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
}

func TestListUsersFiltersByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "t1@school.test", models.RoleTeacher)
	env.createUser(t, "t2@school.test", models.RoleTeacher)
	env.createUser(t, "s1@school.test", models.RoleStudent)

	role := models.RoleTeacher
	page, err := env.users.ListUsers(ctx, models.UserFilter{RoleType: &role}, PageRequest{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Pagination.TotalItems)
	assert.Len(t, page.Items, 2)
}

func TestAdminResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.createUser(t, "reset-me@school.test", models.RoleTeacher)

	require.NoError(t, env.users.ResetPassword(ctx, env.admin, teacher.ID))
	temp := env.mailer.tempPasswords["reset-me@school.test"]
	require.NotEmpty(t, temp)

	stored, err := env.store.Users().GetByID(ctx, teacher.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(stored.Password, temp))

	assert.ErrorIs(t, env.users.ResetPassword(ctx, env.admin, 999), apperrors.ErrUserNotFound)
}
