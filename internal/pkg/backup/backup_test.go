package backup

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// rollbar-go starts its async transport when the logger package is loaded
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/rollbar/rollbar-go.NewAsyncTransport.func1"))
}

// fakeTool writes a shell script standing in for pg_dump or psql
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700))
	return path
}

func newRunner(t *testing.T, dump, psql string, timeout time.Duration) *Runner {
	t.Helper()
	r, err := NewRunner(Config{
		Dir:        t.TempDir(),
		PgDumpPath: dump,
		PsqlPath:   psql,
		Timeout:    timeout,
		DBName:     "schoolportal",
	})
	require.NoError(t, err)
	return r
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("backup-20250101-120000.sql"))
	assert.NoError(t, ValidateName("backup-20250101-120000-2.sql"))
	for _, bad := range []string{"", "../backup-20250101-120000.sql", "backup-2025.sql", "backup-20250101-120000.sql.gz", "x.sql"} {
		assert.ErrorIs(t, ValidateName(bad), apperrors.ErrInvalidBackupName, bad)
	}
}

func TestCreateListRestoreDelete(t *testing.T) {
	// the output path is always the last argument
	dump := fakeTool(t, `for last; do :; done; echo "-- dump" > "$last"`)
	psql := fakeTool(t, `exit 0`)
	r := newRunner(t, dump, psql, 5*time.Second)
	r.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

	info, err := r.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "backup-20250304-050607.sql", info.Name)
	assert.Greater(t, info.SizeBytes, int64(0))

	list, err := r.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, info.Name, list[0].Name)

	require.NoError(t, r.Restore(context.Background(), info.Name))

	require.NoError(t, r.Delete(info.Name))
	assert.ErrorIs(t, r.Delete(info.Name), apperrors.ErrBackupNotFound)
}

func TestCreateFailureRemovesPartialFile(t *testing.T) {
	dump := fakeTool(t, `for last; do :; done; echo partial > "$last"; echo "connection refused" >&2; exit 1`)
	r := newRunner(t, dump, "", 5*time.Second)

	_, err := r.Create(context.Background())
	require.ErrorIs(t, err, apperrors.ErrBackupFailed)
	assert.Contains(t, err.Error(), "connection refused")

	list, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateTimeout(t *testing.T) {
	dump := fakeTool(t, `exec sleep 5`)
	r := newRunner(t, dump, "", 100*time.Millisecond)

	start := time.Now()
	_, err := r.Create(context.Background())
	require.ErrorIs(t, err, apperrors.ErrBackupFailed)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRestoreUnknownBackup(t *testing.T) {
	r := newRunner(t, "", "", time.Second)
	assert.ErrorIs(t, r.Restore(context.Background(), "backup-20250101-000000.sql"), apperrors.ErrBackupNotFound)
	assert.ErrorIs(t, r.Restore(context.Background(), "../../etc/passwd"), apperrors.ErrInvalidBackupName)
}

func TestCreateSameSecondKeepsEarlierDump(t *testing.T) {
	dump := fakeTool(t, `for last; do :; done; echo "-- dump" > "$last"`)
	r := newRunner(t, dump, "", 5*time.Second)
	r.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

	first, err := r.Create(context.Background())
	require.NoError(t, err)
	second, err := r.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "backup-20250304-050607.sql", first.Name)
	assert.Equal(t, "backup-20250304-050607-2.sql", second.Name)

	r.cfg.PgDumpPath = fakeTool(t, `exit 1`)
	_, err = r.Create(context.Background())
	require.ErrorIs(t, err, apperrors.ErrBackupFailed)

	list, err := r.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Name, list[0].Name)
	for _, b := range list {
		assert.Greater(t, b.SizeBytes, int64(0), b.Name)
	}
}
