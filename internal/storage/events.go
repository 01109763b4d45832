package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// The event log is append-only. There is no update or single-event delete.

// AppendEvent appends an event to a booking's log and sets e.ID.
func (s *SQLiteStore) AppendEvent(ctx context.Context, e *BookingEvent) error {
	return appendEvent(ctx, s.db, e)
}

// ListEvents returns a booking's events in the order they were recorded.
func (s *SQLiteStore) ListEvents(ctx context.Context, bookingID int64) ([]BookingEvent, error) {
	return listEvents(ctx, s.db, bookingID)
}

// CountEvents returns how many events a booking has.
func (s *SQLiteStore) CountEvents(ctx context.Context, bookingID int64) (int, error) {
	if bookingID <= 0 {
		return 0, errors.New(errBookingIDRequired)
	}

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM booking_events WHERE booking_id = ?
	`, bookingID).Scan(&n)
	if err != nil {
		return 0, wrapReadErr("count booking events", err)
	}
	return n, nil
}

func appendEvent(ctx context.Context, q querier, e *BookingEvent) error {
	if e == nil {
		return errors.New("booking event cannot be nil")
	}
	if e.EventType == "" {
		return errors.New("event_type is required")
	}

	revenue, err := nullableCents(e.Revenue)
	if err != nil {
		return fmt.Errorf("invalid revenue %s: %w", e.Revenue.Decimal, err)
	}

	eventID := e.EventID
	if eventID == "" {
		eventID = uuid.New().String()
	}
	ts := e.TsUnixMs
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO booking_events (event_id, booking_id, event_type, revenue_cents, ts_unix_ms)
		VALUES (?, ?, ?, ?, ?)
	`, eventID, e.BookingID, e.EventType, revenue, ts)
	if err != nil {
		return wrapWriteErr(fmt.Sprintf("append %s event for booking %d", e.EventType, e.BookingID), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return wrapReadErr("read event id", err)
	}

	e.ID = id
	e.EventID = eventID
	e.TsUnixMs = ts
	return nil
}

func listEvents(ctx context.Context, q querier, bookingID int64) ([]BookingEvent, error) {
	if bookingID <= 0 {
		return nil, errors.New(errBookingIDRequired)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, event_id, booking_id, event_type, revenue_cents, ts_unix_ms
		FROM booking_events
		WHERE booking_id = ?
		ORDER BY id ASC
	`, bookingID)
	if err != nil {
		return nil, wrapReadErr("query booking events", err)
	}
	defer rows.Close()

	var events []BookingEvent
	for rows.Next() {
		var e BookingEvent
		var revenue sql.NullInt64
		if err := rows.Scan(&e.ID, &e.EventID, &e.BookingID, &e.EventType, &revenue, &e.TsUnixMs); err != nil {
			return nil, wrapReadErr("scan booking event", err)
		}
		e.Revenue = nullDecimalFromCents(revenue)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapReadErr("iterate booking events", err)
	}
	return events, nil
}
