package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperengineering/crm/internal/types"
	_ "modernc.org/sqlite"
)

const metaLastBackup = "last_backup"

// timeLayout is the on-disk timestamp format.
const timeLayout = time.RFC3339Nano

// SQLiteStore is the SQLite-backed CRM database.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	backupDir string
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: pragmas are per-connection and :memory: databases are
	// per-connection too. The CRM has a single writer anyway.
	db.SetMaxOpenConns(1)

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	backupDir := filepath.Join(filepath.Dir(dbPath), "backups")
	if dbPath == ":memory:" {
		backupDir = filepath.Join(os.TempDir(), "crm-backups")
	}

	return &SQLiteStore{db: db, path: dbPath, backupDir: backupDir}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetStats returns aggregate store statistics
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var stats types.StoreStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM clients),
			(SELECT COUNT(*) FROM clients WHERE status = 'closed'),
			(SELECT COUNT(*) FROM site_types)
	`).Scan(&stats.ClientCount, &stats.ClosedCount, &stats.SiteTypeCount)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	lastBackup, err := s.getMeta(ctx, metaLastBackup)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if lastBackup != "" {
		if t, err := time.Parse(timeLayout, lastBackup); err == nil {
			stats.LastBackup = &t
		}
	}

	return &stats, nil
}

// SchemaVersion returns the applied migration version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int64, error) {
	return migrationVersion(s.db)
}

// GenerateBackup writes a consistent copy of the database into the backup
// directory and returns its path. The previous backup is replaced.
func (s *SQLiteStore) GenerateBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	path := filepath.Join(s.backupDir, "current.db")
	tmp := path + ".tmp"
	// VACUUM INTO refuses to overwrite an existing file.
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove stale backup: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, tmp); err != nil {
		return "", fmt.Errorf("vacuum into backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("publish backup: %w", err)
	}

	if err := s.setMeta(ctx, metaLastBackup, time.Now().UTC().Format(timeLayout)); err != nil {
		return "", err
	}
	return path, nil
}

func (s *SQLiteStore) getMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("store meta key %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get store meta: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO store_meta (key, value) VALUES (?, ?)
	`, key, value)
	if err != nil {
		return fmt.Errorf("set store meta: %w", err)
	}
	return nil
}

// parseTime parses a stored timestamp, tolerating second-precision values.
func parseTime(value string) time.Time {
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
