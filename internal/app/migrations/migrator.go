package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/schoolportal/internal/pkg/logger"
)

//go:embed sql/*.sql
var embedded embed.FS

// Files returns the migrations shipped with the binary
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migration is a single versioned SQL file
type Migration struct {
	Version string
	Name    string
}

// Migrator manages database migrations
type Migrator struct {
	db    *pgxpool.Pool
	files fs.FS
}

// NewMigrator creates a new migrator over the given SQL files
func NewMigrator(db *pgxpool.Pool, files fs.FS) *Migrator {
	return &Migrator{
		db:    db,
		files: files,
	}
}

// ListMigrations returns the SQL files in files sorted by name.
// Versions come from the filename prefix ("001_init.sql" => "001").
func ListMigrations(files fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var out []Migration
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version := strings.SplitN(e.Name(), "_", 2)[0]
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %s: %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()
		out = append(out, Migration{Version: version, Name: e.Name()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ensureMigrationTableExists creates the migration tracking table if it doesn't exist
func (m *Migrator) ensureMigrationTableExists(ctx context.Context) error {
	_, err := m.db.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	return nil
}

// Applied returns the applied versions
func (m *Migrator) Applied(ctx context.Context) (map[string]time.Time, error) {
	if err := m.ensureMigrationTableExists(ctx); err != nil {
		return nil, err
	}

	rows, err := m.db.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var version string
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = at
	}
	return applied, rows.Err()
}

// Up applies every pending migration in order, each in its own transaction.
// It returns the number of migrations applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	migrations, err := ListMigrations(m.files)
	if err != nil {
		return 0, err
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range migrations {
		if _, ok := applied[mig.Version]; ok {
			logger.Debug().Str("migration", mig.Name).Msg("Migration already applied, skipping")
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	content, err := fs.ReadFile(m.files, path.Clean(mig.Name))
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	err = pgx.BeginFunc(ctx, m.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("error occurred during SQL migration %s: %w", mig.Name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`, mig.Version, time.Now()); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info().Str("migration", mig.Name).Msg("Migration file successfully applied")
	return nil
}
