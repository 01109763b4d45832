// Package storagetest provisions isolated stores for tests. Each store lives
// in its own temp directory and is closed when the test finishes.
package storagetest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/runger/ridebook/internal/storage"
)

var seq atomic.Int64

// NewStore opens a fresh file-backed store under t.TempDir().
func NewStore(t testing.TB) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "ridebook.db"))
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// NewMemoryStore opens a fresh in-memory store.
func NewMemoryStore(t testing.TB) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(storage.MemoryPath)
	require.NoError(t, err, "open in-memory test store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// SeedUser inserts a user with a unique email and returns it.
func SeedUser(t testing.TB, store storage.Store, name string) *storage.User {
	t.Helper()

	u := &storage.User{
		Name:  name,
		Email: fmt.Sprintf("user%d@alps.test", seq.Add(1)),
	}
	require.NoError(t, store.CreateUser(context.Background(), u), "seed user")
	return u
}

// SeedBooking inserts a pending booking for userID without any events.
func SeedBooking(t testing.TB, store storage.Store, userID int64, pickup, dropoff, price string) *storage.Booking {
	t.Helper()

	b := &storage.Booking{
		UserID:  userID,
		Pickup:  pickup,
		Dropoff: dropoff,
		Price:   decimal.RequireFromString(price),
	}
	require.NoError(t, store.CreateBooking(context.Background(), b), "seed booking")
	return b
}
