// Package backup creates and restores PostgreSQL dumps with pg_dump and psql.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/logger"
)

var namePattern = regexp.MustCompile(`^backup-\d{8}-\d{6}(-\d{1,3})?\.sql$`)

const maxNameAttempts = 100

// Config holds dump tool locations and connection settings
type Config struct {
	Dir        string
	PgDumpPath string
	PsqlPath   string
	Timeout    time.Duration

	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// Info describes one dump file
type Info struct {
	Name      string
	SizeBytes int64
	CreatedAt time.Time
}

// Runner executes backup operations
type Runner struct {
	cfg Config
	now func() time.Time
}

// NewRunner creates a Runner and ensures the backup directory exists
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.PgDumpPath == "" {
		cfg.PgDumpPath = "pg_dump"
	}
	if cfg.PsqlPath == "" {
		cfg.PsqlPath = "psql"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", cfg.Dir, err)
	}
	return &Runner{cfg: cfg, now: time.Now}, nil
}

// ValidateName rejects anything but names produced by Create
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return apperrors.ErrInvalidBackupName
	}
	return nil
}

// Path resolves a validated backup name to its file path
func (r *Runner) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(r.cfg.Dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.ErrBackupNotFound
		}
		return "", fmt.Errorf("failed to stat backup: %w", err)
	}
	return path, nil
}

// reserveName creates an empty file under a fresh timestamped name.
// Names taken within the same second get a numeric suffix.
func (r *Runner) reserveName() (string, string, error) {
	stamp := r.now().Format("20060102-150405")
	for i := 1; i <= maxNameAttempts; i++ {
		name := fmt.Sprintf("backup-%s.sql", stamp)
		if i > 1 {
			name = fmt.Sprintf("backup-%s-%d.sql", stamp, i)
		}
		path := filepath.Join(r.cfg.Dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", "", fmt.Errorf("%w: %v", apperrors.ErrBackupFailed, err)
		}
		if err := f.Close(); err != nil {
			return "", "", fmt.Errorf("%w: %v", apperrors.ErrBackupFailed, err)
		}
		return name, path, nil
	}
	return "", "", fmt.Errorf("%w: no free backup name for %s", apperrors.ErrBackupFailed, stamp)
}

// Create dumps the database into a new timestamped file. An existing dump is never overwritten.
func (r *Runner) Create(ctx context.Context) (*Info, error) {
	name, path, err := r.reserveName()
	if err != nil {
		return nil, err
	}

	args := append(r.connArgs(), "--no-owner", "--no-privileges", "--clean", "--if-exists", "-f", path)
	if err := r.run(ctx, r.cfg.PgDumpPath, args); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: dump file missing: %v", apperrors.ErrBackupFailed, err)
	}

	logger.Info().Str("backup", name).Int64("size", st.Size()).Msg("Database backup created")
	return &Info{Name: name, SizeBytes: st.Size(), CreatedAt: st.ModTime()}, nil
}

// Restore replays a dump with psql, stopping on the first error
func (r *Runner) Restore(ctx context.Context, name string) error {
	path, err := r.Path(name)
	if err != nil {
		return err
	}

	args := append(r.connArgs(), "-v", "ON_ERROR_STOP=1", "-q", "-f", path)
	if err := r.run(ctx, r.cfg.PsqlPath, args); err != nil {
		return err
	}

	logger.Info().Str("backup", name).Msg("Database restored from backup")
	return nil
}

// List returns backups newest first
func (r *Runner) List() ([]Info, error) {
	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var out []Info
	for _, e := range entries {
		if e.IsDir() || !namePattern.MatchString(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Name: e.Name(), SizeBytes: fi.Size(), CreatedAt: fi.ModTime()})
	}

	sort.Slice(out, func(i, j int) bool {
		si, ni := nameOrder(out[i].Name)
		sj, nj := nameOrder(out[j].Name)
		if si != sj {
			return si > sj
		}
		return ni > nj
	})
	return out, nil
}

// nameOrder splits a valid name into its timestamp and same-second sequence
func nameOrder(name string) (string, int) {
	base := strings.TrimSuffix(name, ".sql")
	stamp, seq := base[:len("backup-20060102-150405")], 1
	if rest := base[len(stamp):]; rest != "" {
		seq, _ = strconv.Atoi(strings.TrimPrefix(rest, "-"))
	}
	return stamp, seq
}

// Delete removes a backup file
func (r *Runner) Delete(name string) error {
	path, err := r.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	logger.Info().Str("backup", name).Msg("Backup deleted")
	return nil
}

func (r *Runner) connArgs() []string {
	var args []string
	if r.cfg.Host != "" {
		args = append(args, "-h", r.cfg.Host)
	}
	if r.cfg.Port != "" {
		args = append(args, "-p", r.cfg.Port)
	}
	if r.cfg.User != "" {
		args = append(args, "-U", r.cfg.User)
	}
	if r.cfg.DBName != "" {
		args = append(args, "-d", r.cfg.DBName)
	}
	return args
}

func (r *Runner) run(ctx context.Context, bin string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+r.cfg.Password)
	cmd.WaitDelay = 2 * time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err == nil {
		return nil
	}

	msg := strings.TrimSpace(stderr.String())
	if len(msg) > 500 {
		msg = msg[len(msg)-500:]
	}
	if ctx.Err() == context.DeadlineExceeded {
		msg = "timed out after " + r.cfg.Timeout.String()
	}
	logger.Error().Err(err).Str("command", filepath.Base(bin)).Dur("elapsed", time.Since(start)).Str("stderr", msg).Msg("Backup command failed")
	return fmt.Errorf("%w: %s: %s", apperrors.ErrBackupFailed, filepath.Base(bin), msg)
}
