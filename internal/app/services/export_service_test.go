package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/pkg/backup"
)

func TestExportTables(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 10)
	teacher := env.teacher(t, "teacher@school.test")
	_, err := env.catalog.AssignTeacher(ctx, env.admin, f.schedules[0].ID, &teacher.UserID)
	require.NoError(t, err)
	env.enrolledStudent(t, 1, f)
	env.admittedStudent(t, 2, f)

	exports := NewExportService(env.store.Students(), env.store.Enrollments(), env.grades, env.audit)

	students, err := exports.Students(ctx, env.admin, models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students.Rows, 2)
	assert.Equal(t, "Student Number", students.Headers[0])

	enrollments, err := exports.Enrollments(ctx, env.admin, models.EnrollmentFilter{SchoolYear: "2025-2026"})
	require.NoError(t, err)
	require.Len(t, enrollments.Rows, 1)
	assert.Equal(t, "APPROVED", enrollments.Rows[0][6])

	sheet, err := exports.GradeSheet(ctx, env.admin, f.schedules[0].ID)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "DRAFT", sheet.Rows[0][8])
	assert.Equal(t, "", sheet.Rows[0][6], "no final grade yet")

	logs, _, err := env.store.AdminLogs().List(ctx, models.AdminLogFilter{Action: models.ActionExport}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "", formatScore(nil))
	assert.Equal(t, "74.75", formatScore(score(74.75)))
	assert.Equal(t, "90.00", formatScore(score(90)))
}

type fakeRunner struct {
	infos     []backup.Info
	createErr error
	restored  []string
	deleted   []string
}

func (r *fakeRunner) Create(context.Context) (*backup.Info, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	info := backup.Info{Name: "backup-20250101-120000.sql", SizeBytes: 2048, CreatedAt: time.Now()}
	r.infos = append(r.infos, info)
	return &info, nil
}

func (r *fakeRunner) Restore(_ context.Context, name string) error {
	r.restored = append(r.restored, name)
	return nil
}

func (r *fakeRunner) List() ([]backup.Info, error) { return r.infos, nil }

func (r *fakeRunner) Delete(name string) error {
	r.deleted = append(r.deleted, name)
	return nil
}

func (r *fakeRunner) Path(name string) (string, error) { return "/backups/" + name, nil }

func TestBackupServiceRecordsEachRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	runner := &fakeRunner{}
	svc := NewBackupService(runner, env.audit, zerolog.Nop())

	created, err := svc.Create(ctx, env.admin)
	require.NoError(t, err)
	assert.Equal(t, "backup-20250101-120000.sql", created.Name)

	list, err := svc.List()
	require.NoError(t, err)
	assert.Equal(t, []dto.BackupResponse{*created}, list)

	require.NoError(t, svc.Restore(ctx, env.admin, created.Name))
	require.NoError(t, svc.Delete(ctx, env.admin, created.Name))
	assert.Equal(t, []string{created.Name}, runner.restored)
	assert.Equal(t, []string{created.Name}, runner.deleted)

	_, total, err := env.store.AdminLogs().List(ctx, models.AdminLogFilter{EntityType: models.EntityBackup}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	runner.createErr = errors.New("pg_dump: connection refused")
	_, err = svc.Create(ctx, env.admin)
	assert.Error(t, err)
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 10)
	env.enrolledStudent(t, 1, f)
	env.createUser(t, "pending@school.test", models.RoleStudent)
	env.teacher(t, "teacher@school.test")

	stats, err := NewDashboardService(env.store.Dashboard()).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Students)
	assert.Equal(t, int64(1), stats.Teachers)
	assert.Equal(t, int64(1), stats.EnrollmentsByYear["2025-2026"])
}
