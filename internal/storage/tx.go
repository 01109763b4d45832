package storage

import (
	"context"
	"database/sql"
)

// querier is satisfied by both *sql.DB and *sql.Tx so every data access
// helper can run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a scoped unit of work. Everything written through it becomes
// visible to other readers at once, or not at all.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise; fn's error is returned unchanged.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin transaction", Path: s.path, Err: err}
	}
	defer sqlTx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &StorageError{Op: "commit transaction", Path: s.path, Err: err}
	}
	return nil
}

// CreateUser creates a user inside the transaction.
func (t *Tx) CreateUser(ctx context.Context, u *User) error {
	return createUser(ctx, t.tx, u)
}

// GetUser reads a user inside the transaction.
func (t *Tx) GetUser(ctx context.Context, id int64) (*User, error) {
	return getUser(ctx, t.tx, id)
}

// CreateBooking creates a booking inside the transaction.
func (t *Tx) CreateBooking(ctx context.Context, b *Booking) error {
	return createBooking(ctx, t.tx, b)
}

// GetBooking reads a booking inside the transaction.
func (t *Tx) GetBooking(ctx context.Context, id int64) (*Booking, error) {
	return getBooking(ctx, t.tx, id)
}

// UpdateBookingStatus changes a booking's status inside the transaction.
func (t *Tx) UpdateBookingStatus(ctx context.Context, id int64, status string) error {
	return updateBookingStatus(ctx, t.tx, id, status)
}

// AppendEvent appends an event inside the transaction.
func (t *Tx) AppendEvent(ctx context.Context, e *BookingEvent) error {
	return appendEvent(ctx, t.tx, e)
}

// ListEvents reads a booking's events inside the transaction.
func (t *Tx) ListEvents(ctx context.Context, bookingID int64) ([]BookingEvent, error) {
	return listEvents(ctx, t.tx, bookingID)
}
