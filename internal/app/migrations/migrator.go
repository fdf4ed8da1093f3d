package migrations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/coursehub/internal/db"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

// migrationLockKey keeps two instances from migrating at once.
const migrationLockKey int64 = 0x6d696772617465

// Migrator applies numbered SQL files in order and records each applied
// version in schema_migrations.
type Migrator struct {
	db db.Pool
}

// NewMigrator creates a new migrator
func NewMigrator(pool db.Pool) *Migrator {
	return &Migrator{db: pool}
}

func (m *Migrator) ensureMigrationTableExists(ctx context.Context) error {
	_, err := m.db.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	return nil
}

// versionOf maps "001_init.sql" to "001".
func versionOf(filename string) string {
	base := filepath.Base(filename)
	version, _, _ := strings.Cut(base, "_")
	return strings.TrimSuffix(version, ".sql")
}

// MigrateFromFile applies one file inside a transaction unless its version
// is already recorded.
func (m *Migrator) MigrateFromFile(ctx context.Context, filePath string) (applied bool, err error) {
	version := versionOf(filePath)
	l := logger.FromContext(ctx).With().Str("migration", filepath.Base(filePath)).Logger()

	content, err := os.ReadFile(filePath)
	if err != nil {
		return false, fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to start transaction: %w", err)
	}

	applied, err = m.apply(ctx, tx, version, string(content))
	if err != nil || !applied {
		_ = tx.Rollback(ctx)
		if err == nil {
			l.Debug().Msg("Migration already applied, skipping")
		}
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit migration %s: %w", version, err)
	}

	l.Info().Msg("Migration applied")
	return true, nil
}

func (m *Migrator) apply(ctx context.Context, tx pgx.Tx, version, content string) (bool, error) {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
		return false, fmt.Errorf("failed to take migration lock: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, content); err != nil {
		return false, fmt.Errorf("error occurred during SQL migration %s: %w", version, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return false, fmt.Errorf("failed to record migration: %w", err)
	}
	return true, nil
}

// MigrateFromDirectory applies every *.sql file in dirPath in name order and
// returns how many were newly applied.
func (m *Migrator) MigrateFromDirectory(ctx context.Context, dirPath string) (int, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if err := m.ensureMigrationTableExists(ctx); err != nil {
		return 0, err
	}

	count := 0
	for _, f := range files {
		applied, err := m.MigrateFromFile(ctx, filepath.Join(dirPath, f))
		if err != nil {
			return count, err
		}
		if applied {
			count++
		}
	}
	return count, nil
}
