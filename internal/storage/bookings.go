package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatusPending is the status every booking starts in.
const StatusPending = "pending"

// errBookingIDRequired is the validation message for a missing booking id.
const errBookingIDRequired = "booking id is required"

// bookingColumns is the column list shared by every booking read.
const bookingColumns = `id, reference, user_id, pickup, dropoff, price_cents, status, created_at_unix_ms`

// CreateBooking creates a new booking and sets b.ID.
func (s *SQLiteStore) CreateBooking(ctx context.Context, b *Booking) error {
	return createBooking(ctx, s.db, b)
}

// GetBooking retrieves a booking by ID.
func (s *SQLiteStore) GetBooking(ctx context.Context, id int64) (*Booking, error) {
	return getBooking(ctx, s.db, id)
}

// GetBookingByReference retrieves a booking by its public reference.
func (s *SQLiteStore) GetBookingByReference(ctx context.Context, ref string) (*Booking, error) {
	if ref == "" {
		return nil, errors.New("reference is required")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE reference = ?`, ref)
	return scanBooking(row)
}

// UpdateBookingStatus changes a booking's status.
func (s *SQLiteStore) UpdateBookingStatus(ctx context.Context, id int64, status string) error {
	return updateBookingStatus(ctx, s.db, id, status)
}

// QueryBookings queries bookings based on the given criteria, oldest first.
func (s *SQLiteStore) QueryBookings(ctx context.Context, q BookingQuery) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	args := make([]any, 0)

	if q.UserID > 0 {
		query += " AND user_id = ?"
		args = append(args, q.UserID)
	}
	if q.Status != "" {
		query += " AND status = ?"
		args = append(args, q.Status)
	}

	query += " ORDER BY id ASC"

	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	} else {
		query += " LIMIT 1000"
	}

	if q.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapReadErr("query bookings", err)
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBookingRow(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapReadErr("iterate bookings", err)
	}
	return bookings, nil
}

// DeleteBooking removes a booking together with its events. Bookings are
// never deleted by the lifecycle; this exists for fixture teardown.
func (s *SQLiteStore) DeleteBooking(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New(errBookingIDRequired)
	}

	return s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx,
			`DELETE FROM booking_events WHERE booking_id = ?`, id); err != nil {
			return wrapWriteErr("delete booking events", err)
		}

		result, err := tx.tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
		if err != nil {
			return wrapWriteErr("delete booking", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return wrapReadErr("get rows affected", err)
		}
		if n == 0 {
			return ErrBookingNotFound
		}
		return nil
	})
}

func createBooking(ctx context.Context, q querier, b *Booking) error {
	if b == nil {
		return errors.New("booking cannot be nil")
	}
	pickup := strings.TrimSpace(b.Pickup)
	dropoff := strings.TrimSpace(b.Dropoff)
	if pickup == "" {
		return errors.New("pickup is required")
	}
	if dropoff == "" {
		return errors.New("dropoff is required")
	}

	cents, err := priceToCents(b.Price)
	if err != nil {
		return fmt.Errorf("invalid price %s: %w", b.Price, err)
	}

	reference := b.Reference
	if reference == "" {
		reference = uuid.New().String()
	}
	status := b.Status
	if status == "" {
		status = StatusPending
	}
	createdAt := b.CreatedAtUnixMs
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO bookings (
			reference, user_id, pickup, dropoff, price_cents, status, created_at_unix_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		reference,
		b.UserID,
		pickup,
		dropoff,
		cents,
		status,
		createdAt,
	)
	if err != nil {
		return wrapWriteErr(fmt.Sprintf("create booking for user %d", b.UserID), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return wrapReadErr("read booking id", err)
	}

	b.ID = id
	b.Reference = reference
	b.Pickup = pickup
	b.Dropoff = dropoff
	b.Status = status
	b.CreatedAtUnixMs = createdAt
	return nil
}

func getBooking(ctx context.Context, q querier, id int64) (*Booking, error) {
	if id <= 0 {
		return nil, errors.New(errBookingIDRequired)
	}
	row := q.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

func updateBookingStatus(ctx context.Context, q querier, id int64, status string) error {
	if id <= 0 {
		return errors.New(errBookingIDRequired)
	}
	if status == "" {
		return errors.New("status is required")
	}

	result, err := q.ExecContext(ctx, `
		UPDATE bookings SET status = ? WHERE id = ?
	`, status, id)
	if err != nil {
		return wrapWriteErr("update booking status", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return wrapReadErr("get rows affected", err)
	}
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row *sql.Row) (*Booking, error) {
	b, err := scanBookingRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func scanBookingRow(r rowScanner) (*Booking, error) {
	var b Booking
	var cents int64
	err := r.Scan(
		&b.ID,
		&b.Reference,
		&b.UserID,
		&b.Pickup,
		&b.Dropoff,
		&cents,
		&b.Status,
		&b.CreatedAtUnixMs,
	)
	if err != nil {
		return nil, wrapReadErr("scan booking", err)
	}
	b.Price = FromCents(cents)
	return &b, nil
}
