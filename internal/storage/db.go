package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// MemoryPath opens a private in-memory database instead of a file.
const MemoryPath = ":memory:"

// defaultBusyTimeoutMs is how long a writer waits on a locked database.
const defaultBusyTimeoutMs = 5000

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	logger    *slog.Logger
	closeOnce sync.Once // ensures Close() is idempotent
	closeErr  error     // stores the error from Close()
}

// Options configures how the store is opened.
type Options struct {
	Logger        *slog.Logger
	Path          string // file path, or MemoryPath
	BusyTimeoutMs int
}

// DefaultDBPath returns the default database path (~/.ridebook/ridebook.db).
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".ridebook", "ridebook.db"), nil
}

// NewSQLiteStore creates a new SQLiteStore with the given database path.
// If the path is empty, it uses the default path (~/.ridebook/ridebook.db).
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return Open(context.Background(), Options{Path: dbPath})
}

// Open opens the database with foreign key enforcement switched on and
// ensures the schema exists. The caller must call Close() when done.
func Open(ctx context.Context, opts Options) (*SQLiteStore, error) {
	dbPath := opts.Path
	if dbPath == "" {
		var err error
		dbPath, err = DefaultDBPath()
		if err != nil {
			return nil, &StorageError{Op: "open", Err: err}
		}
	}

	busyTimeout := opts.BusyTimeoutMs
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeoutMs
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var dsn string
	if dbPath == MemoryPath {
		dsn = fmt.Sprintf("file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", busyTimeout)
	} else {
		// Ensure the directory exists
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, &StorageError{Op: "create database directory", Path: dbPath, Err: err}
		}
		// modernc.org/sqlite uses _pragma=name(value) syntax
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
			dbPath, busyTimeout)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StorageError{Op: "open database", Path: dbPath, Err: err}
	}

	// One connection: an in-memory database lives exactly as long as it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Ping to establish connection and ensure pragmas are applied
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &StorageError{Op: "connect to database", Path: dbPath, Err: err}
	}

	store := &SQLiteStore{
		db:     db,
		path:   dbPath,
		logger: logger,
	}

	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection.
// It is safe to call Close multiple times.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		if s.db == nil {
			return
		}
		if s.path != MemoryPath {
			// Merge the WAL into the main file so the database is self-contained.
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		}
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// DB returns the underlying database connection for advanced use cases.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Path returns the database path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// EnsureSchema creates any missing tables and indexes. Every statement uses
// IF NOT EXISTS and each version is recorded in schema_meta, so calling it
// repeatedly is safe.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("%w: database version %d, supported version %d",
			ErrSchemaVersionTooNew, current, SchemaVersion)
	}

	applied := 0
	for _, m := range migrations() {
		if m.version <= current {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
		applied++
	}

	if applied > 0 {
		s.logger.Debug("schema ensured",
			"database_path", s.path,
			"from_version", current,
			"to_version", SchemaVersion,
		)
	}
	return nil
}

// applyMigration applies a single migration within a transaction.
func (s *SQLiteStore) applyMigration(ctx context.Context, m migration) error {
	op := fmt.Sprintf("apply schema v%d", m.version)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: op, Path: s.path, Err: err}
	}
	defer tx.Rollback() //nolint:errcheck // Best effort rollback on error

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return &StorageError{Op: op, Path: s.path, Err: err}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO schema_meta (version, applied_at_unix_ms)
		VALUES (?, ?)
	`, m.version, time.Now().UnixMilli())
	if err != nil {
		return &StorageError{Op: op, Path: s.path, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: op, Path: s.path, Err: err}
	}
	return nil
}

// SchemaVersion returns the highest applied schema version, or 0 for a
// database that has never been initialised.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_meta
	`).Scan(&version)
	if err != nil {
		if isTableNotFoundError(err) {
			return 0, nil
		}
		return 0, &StorageError{Op: "read schema version", Path: s.path, Err: err}
	}
	return version, nil
}

// ValidateSchema checks that all expected tables and indexes exist.
func (s *SQLiteStore) ValidateSchema(ctx context.Context) error {
	check := func(kind, name string) error {
		var got string
		err := s.db.QueryRowContext(ctx, `
			SELECT name FROM sqlite_master WHERE type = ? AND name = ?
		`, kind, name).Scan(&got)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%s %q does not exist", kind, name)
			}
			return &StorageError{Op: "check " + kind, Path: s.path, Err: err}
		}
		return nil
	}

	for _, table := range AllTables {
		if err := check("table", table); err != nil {
			return err
		}
	}
	for _, index := range AllIndexes {
		if err := check("index", index); err != nil {
			return err
		}
	}
	return nil
}

// ForeignKeysEnabled reports whether the connection enforces foreign keys.
func (s *SQLiteStore) ForeignKeysEnabled(ctx context.Context) (bool, error) {
	var on int
	if err := s.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on); err != nil {
		return false, &StorageError{Op: "read foreign_keys pragma", Path: s.path, Err: err}
	}
	return on == 1, nil
}
