package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewSQLiteStore_CreatesDatabase(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	// Verify database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("Database directory was not created")
	}
}

func TestNewSQLiteStore_UnwritableLocation(t *testing.T) {
	t.Parallel()

	// A regular file where the parent directory should be.
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := NewSQLiteStore(filepath.Join(blocker, "test.db"))
	if err == nil {
		t.Fatal("Expected error when the database directory cannot be created")
	}

	var se *StorageError
	if !errors.As(err, &se) {
		t.Errorf("error = %T (%v), want *StorageError", err, err)
	}
}

func TestSQLiteStore_EnsureSchema_CreatesTables(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	for _, table := range AllTables {
		_, err := store.DB().ExecContext(context.Background(),
			"SELECT 1 FROM "+table+" LIMIT 1")
		if err != nil {
			t.Errorf("Table %s does not exist: %v", table, err)
		}
	}

	if err := store.ValidateSchema(context.Background()); err != nil {
		t.Errorf("ValidateSchema() error = %v", err)
	}
}

func TestSQLiteStore_EnsureSchema_Idempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := store.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema() call %d error = %v", i+1, err)
		}
	}

	for _, table := range AllTables {
		var n int
		err := store.DB().QueryRowContext(ctx, `
			SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?
		`, table).Scan(&n)
		if err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("table %s appears %d times, want 1", table, n)
		}
	}

	var versions int
	if err := store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_meta").Scan(&versions); err != nil {
		t.Fatalf("count schema_meta: %v", err)
	}
	if versions != SchemaVersion {
		t.Errorf("schema_meta rows = %d, want %d", versions, SchemaVersion)
	}
}

func TestSQLiteStore_Reopen_KeepsSchemaVersion(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	first, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()

	version, err := second.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("SchemaVersion() = %d, want %d", version, SchemaVersion)
	}
}

func TestSQLiteStore_EventIndex_KeyedOnID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	var ddl string
	err := store.DB().QueryRowContext(context.Background(),
		"SELECT sql FROM sqlite_master WHERE type = 'index' AND name = 'idx_booking_events_booking'").Scan(&ddl)
	if err != nil {
		t.Fatalf("read index ddl error = %v", err)
	}
	if !strings.Contains(ddl, "(booking_id, id)") {
		t.Errorf("idx_booking_events_booking = %q, want columns (booking_id, id)", ddl)
	}
}

func TestSQLiteStore_EnsureSchema_RefusesNewerVersion(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	_, err := store.DB().ExecContext(ctx,
		"INSERT INTO schema_meta (version, applied_at_unix_ms) VALUES (?, 0)", SchemaVersion+1)
	if err != nil {
		t.Fatalf("insert future version: %v", err)
	}

	err = store.EnsureSchema(ctx)
	if !errors.Is(err, ErrSchemaVersionTooNew) {
		t.Errorf("EnsureSchema() error = %v, want ErrSchemaVersionTooNew", err)
	}
}

func TestSQLiteStore_WALMode_Enabled(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	var journalMode string
	err := store.DB().QueryRowContext(context.Background(),
		"PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("Failed to check journal mode: %v", err)
	}

	if journalMode != "wal" {
		t.Errorf("Journal mode = %s, want wal", journalMode)
	}
}

func TestSQLiteStore_ForeignKeys_Enabled(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	on, err := store.ForeignKeysEnabled(context.Background())
	if err != nil {
		t.Fatalf("ForeignKeysEnabled() error = %v", err)
	}
	if !on {
		t.Error("foreign_keys = 0, want 1")
	}
}

func TestSQLiteStore_MemoryStore(t *testing.T) {
	t.Parallel()

	store, err := NewSQLiteStore(MemoryPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(memory) error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.ValidateSchema(ctx); err != nil {
		t.Errorf("ValidateSchema() error = %v", err)
	}

	on, err := store.ForeignKeysEnabled(ctx)
	if err != nil {
		t.Fatalf("ForeignKeysEnabled() error = %v", err)
	}
	if !on {
		t.Error("in-memory store does not enforce foreign keys")
	}
}

func TestSQLiteStore_Close(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Second close should be safe
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

// newTestStore creates a store in a temporary directory for testing.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	return store
}
