package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jengzang/records-timeline-go/internal/logging"
)

//go:embed migrations/*.sql
var schemaFiles embed.FS

// Migration is one versioned schema script, named NNN_description.sql
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationManager applies the timeline schema scripts in version order and
// records each one in schema_migrations.
type MigrationManager struct {
	db     *sql.DB
	files  fs.FS
	dir    string
	logger *zap.Logger
}

// NewMigrationManager creates a migration manager over the embedded schema
func NewMigrationManager(db *sql.DB, logger *zap.Logger) *MigrationManager {
	return newMigrationManager(db, schemaFiles, "migrations", logger)
}

func newMigrationManager(db *sql.DB, files fs.FS, dir string, logger *zap.Logger) *MigrationManager {
	return &MigrationManager{
		db:     db,
		files:  files,
		dir:    dir,
		logger: logging.OrNop(logger).Named("migrations"),
	}
}

// Migrate brings the schema up to date and returns the number of scripts applied
func (m *MigrationManager) Migrate(ctx context.Context) (int, error) {
	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}

	for _, migration := range pending {
		err := Transaction(ctx, m.db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", migration.Name, err)
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
				migration.Version, migration.Name)
			if err != nil {
				return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
		m.logger.Info("applied migration", zap.Int("version", migration.Version), zap.String("name", migration.Name))
	}

	return len(pending), nil
}

// Pending returns the scripts newer than the highest applied version
func (m *MigrationManager) Pending(ctx context.Context) ([]Migration, error) {
	var current sql.NullInt64
	if err := m.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&current); err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}

	all, err := m.load()
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, migration := range all {
		if !current.Valid || int64(migration.Version) > current.Int64 {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

func (m *MigrationManager) load() ([]Migration, error) {
	entries, err := fs.ReadDir(m.files, m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".sql")
		if entry.IsDir() || !ok {
			continue
		}

		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil {
			m.logger.Warn("skipping migration without a numeric prefix", zap.String("file", entry.Name()))
			continue
		}

		content, err := fs.ReadFile(m.files, path.Join(m.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
