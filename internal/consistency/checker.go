// Package consistency cross-checks stored bookings against their event
// trails. Every check is read-only: discrepancies are reported, never
// corrected, and never returned as errors. An error means the check itself
// could not run.
package consistency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/runger/ridebook/internal/booking"
	blog "github.com/runger/ridebook/internal/log"
	"github.com/runger/ridebook/internal/metrics"
	"github.com/runger/ridebook/internal/storage"
)

// Check names used in discrepancies and metrics labels.
const (
	CheckRevenue   = "revenue"
	CheckAggregate = "aggregate"
	CheckTrail     = "event_trail"
)

// Discrepancy is one mismatch found by a check.
type Discrepancy struct {
	Check     string
	BookingID int64
	EventID   int64 // 0 when not tied to a single event
	Detail    string
}

func (d Discrepancy) String() string {
	if d.BookingID == 0 {
		return fmt.Sprintf("[%s] %s", d.Check, d.Detail)
	}
	return fmt.Sprintf("[%s] booking %d: %s", d.Check, d.BookingID, d.Detail)
}

// Report is the result of the per-booking revenue check.
type Report struct {
	BookingID     int64
	Price         decimal.Decimal
	OK            bool
	Discrepancies []Discrepancy
}

// AggregateReport compares summed event revenue with summed booking prices.
type AggregateReport struct {
	EventType string
	Revenue   decimal.Decimal // SUM(revenue) over events of EventType
	Expected  decimal.Decimal // SUM(price) over distinct bookings with such an event
	Bookings  int
	OK        bool
}

// TrailReport is the result of the per-booking event trail check.
type TrailReport struct {
	BookingID      int64
	StoredStatus   string
	ReplayedStatus string
	Events         int
	Transitions    int
	OK             bool
	Discrepancies  []Discrepancy
}

// Summary combines every check over the whole database.
type Summary struct {
	Bookings      int
	Revenue       []Report
	Trails        []TrailReport
	Aggregate     AggregateReport
	Discrepancies []Discrepancy
	OK            bool
}

// Options configures a Checker. Zero values pick defaults.
type Options struct {
	Metrics *metrics.Counters
	Logger  *slog.Logger
}

// replayLifecycle checks trail structure only. A trail that was legal under
// the non-strict setting stays valid after strict mode is turned on.
var replayLifecycle = &booking.Lifecycle{Strict: false}

// Checker runs consistency checks against a ridebook database.
type Checker struct {
	db      *sqlx.DB
	metrics *metrics.Counters
	logger  *slog.Logger
}

// NewChecker wraps an open database handle. The handle stays owned by the
// caller.
func NewChecker(db *sql.DB, opts Options) *Checker {
	c := &Checker{
		db:      sqlx.NewDb(db, "sqlite3"),
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if c.metrics == nil {
		c.metrics = metrics.Global
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

type bookingRow struct {
	ID         int64  `db:"id"`
	PriceCents int64  `db:"price_cents"`
	Status     string `db:"status"`
}

type eventRow struct {
	ID           int64         `db:"id"`
	BookingID    int64         `db:"booking_id"`
	EventType    string        `db:"event_type"`
	RevenueCents sql.NullInt64 `db:"revenue_cents"`
}

const selectBooking = `SELECT id, price_cents, status FROM bookings WHERE id = ?`

const selectAllBookings = `SELECT id, price_cents, status FROM bookings ORDER BY id`

const selectEvents = `
	SELECT id, booking_id, event_type, revenue_cents
	FROM booking_events
	WHERE booking_id = ?
	ORDER BY id`

const selectAllEvents = `
	SELECT id, booking_id, event_type, revenue_cents
	FROM booking_events
	ORDER BY booking_id, id`

func (c *Checker) loadBooking(ctx context.Context, id int64) (bookingRow, []eventRow, error) {
	var b bookingRow
	if err := c.db.GetContext(ctx, &b, selectBooking, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, nil, fmt.Errorf("booking %d: %w", id, storage.ErrBookingNotFound)
		}
		return b, nil, fmt.Errorf("failed to load booking %d: %w", id, err)
	}
	var events []eventRow
	if err := c.db.SelectContext(ctx, &events, selectEvents, id); err != nil {
		return b, nil, fmt.Errorf("failed to load events for booking %d: %w", id, err)
	}
	return b, events, nil
}

// VerifyRevenueConsistency checks that every booking_created event of the
// booking carries revenue equal to the booking price.
func (c *Checker) VerifyRevenueConsistency(ctx context.Context, bookingID int64) (Report, error) {
	b, events, err := c.loadBooking(ctx, bookingID)
	if err != nil {
		return Report{}, err
	}
	r := revenueReport(b, events)
	c.record(r.Discrepancies)
	return r, nil
}

func revenueReport(b bookingRow, events []eventRow) Report {
	price := storage.FromCents(b.PriceCents)
	created := lo.Filter(events, func(e eventRow, _ int) bool {
		return e.EventType == string(booking.EventBookingCreated)
	})

	var out []Discrepancy
	for _, e := range created {
		switch {
		case !e.RevenueCents.Valid:
			out = append(out, Discrepancy{
				Check:     CheckRevenue,
				BookingID: b.ID,
				EventID:   e.ID,
				Detail:    fmt.Sprintf("event %d has no revenue, price %s", e.ID, price.StringFixed(2)),
			})
		case e.RevenueCents.Int64 != b.PriceCents:
			out = append(out, Discrepancy{
				Check:     CheckRevenue,
				BookingID: b.ID,
				EventID:   e.ID,
				Detail: fmt.Sprintf("event %d revenue %s != price %s",
					e.ID, storage.FromCents(e.RevenueCents.Int64).StringFixed(2), price.StringFixed(2)),
			})
		}
	}
	return Report{BookingID: b.ID, Price: price, OK: len(out) == 0, Discrepancies: out}
}

// AggregateRevenue sums revenue over every event of eventType. Events with
// no revenue contribute nothing.
func (c *Checker) AggregateRevenue(ctx context.Context, eventType string) (decimal.Decimal, error) {
	var cents int64
	err := c.db.GetContext(ctx, &cents, `
		SELECT COALESCE(SUM(revenue_cents), 0) FROM booking_events WHERE event_type = ?
	`, eventType)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to aggregate %s revenue: %w", eventType, err)
	}
	return storage.FromCents(cents), nil
}

// VerifyAggregate compares AggregateRevenue(eventType) with the summed price
// of the distinct bookings that have such an event.
func (c *Checker) VerifyAggregate(ctx context.Context, eventType string) (AggregateReport, error) {
	revenue, err := c.AggregateRevenue(ctx, eventType)
	if err != nil {
		return AggregateReport{}, err
	}

	var row struct {
		Cents    int64 `db:"cents"`
		Bookings int   `db:"bookings"`
	}
	err = c.db.GetContext(ctx, &row, `
		SELECT COALESCE(SUM(price_cents), 0) AS cents, COUNT(*) AS bookings
		FROM bookings
		WHERE id IN (SELECT DISTINCT booking_id FROM booking_events WHERE event_type = ?)
	`, eventType)
	if err != nil {
		return AggregateReport{}, fmt.Errorf("failed to sum booking prices for %s: %w", eventType, err)
	}

	r := AggregateReport{
		EventType: eventType,
		Revenue:   revenue,
		Expected:  storage.FromCents(row.Cents),
		Bookings:  row.Bookings,
	}
	r.OK = r.Revenue.Equal(r.Expected)
	if !r.OK {
		c.record([]Discrepancy{aggregateDiscrepancy(r)})
	}
	return r, nil
}

func aggregateDiscrepancy(r AggregateReport) Discrepancy {
	return Discrepancy{
		Check: CheckAggregate,
		Detail: fmt.Sprintf("%s revenue %s != booking total %s over %d bookings",
			r.EventType, r.Revenue.StringFixed(2), r.Expected.StringFixed(2), r.Bookings),
	}
}

// VerifyEventTrail checks that the booking has exactly one booking_created
// event, first in order, and that replaying the trail yields the stored
// status.
func (c *Checker) VerifyEventTrail(ctx context.Context, bookingID int64) (TrailReport, error) {
	b, events, err := c.loadBooking(ctx, bookingID)
	if err != nil {
		return TrailReport{}, err
	}
	r := c.trailReport(b, events)
	c.record(r.Discrepancies)
	return r, nil
}

func (c *Checker) trailReport(b bookingRow, events []eventRow) TrailReport {
	r := TrailReport{
		BookingID:    b.ID,
		StoredStatus: b.Status,
		Events:       len(events),
	}
	add := func(format string, args ...any) {
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Check:     CheckTrail,
			BookingID: b.ID,
			Detail:    fmt.Sprintf(format, args...),
		})
	}

	created := lo.CountBy(events, func(e eventRow) bool {
		return e.EventType == string(booking.EventBookingCreated)
	})
	switch {
	case len(events) == 0:
		add("no events")
	case created != 1:
		add("%d %s events, want 1", created, booking.EventBookingCreated)
	case events[0].EventType != string(booking.EventBookingCreated):
		add("first event is %s, want %s", events[0].EventType, booking.EventBookingCreated)
	}

	types := lo.Map(events, func(e eventRow, _ int) booking.EventType {
		return booking.EventType(e.EventType)
	})
	status, steps, err := replayLifecycle.Replay(types)
	r.ReplayedStatus = string(status)
	r.Transitions = steps
	if err != nil {
		if len(r.Discrepancies) == 0 {
			add("trail does not replay: %v", err)
		}
	} else {
		if r.ReplayedStatus != r.StoredStatus {
			add("stored status %s, trail implies %s", r.StoredStatus, r.ReplayedStatus)
		}
		if r.Events != 1+r.Transitions {
			add("%d events for %d transitions", r.Events, r.Transitions)
		}
	}

	r.OK = len(r.Discrepancies) == 0
	return r
}

// VerifyAll runs the revenue and trail checks over every booking plus the
// booking_created aggregate check.
func (c *Checker) VerifyAll(ctx context.Context) (Summary, error) {
	var bookings []bookingRow
	if err := c.db.SelectContext(ctx, &bookings, selectAllBookings); err != nil {
		return Summary{}, fmt.Errorf("failed to list bookings: %w", err)
	}
	var events []eventRow
	if err := c.db.SelectContext(ctx, &events, selectAllEvents); err != nil {
		return Summary{}, fmt.Errorf("failed to list events: %w", err)
	}
	byBooking := lo.GroupBy(events, func(e eventRow) int64 { return e.BookingID })

	s := Summary{Bookings: len(bookings)}
	for _, b := range bookings {
		trail := byBooking[b.ID]
		s.Revenue = append(s.Revenue, revenueReport(b, trail))
		s.Trails = append(s.Trails, c.trailReport(b, trail))
	}

	agg, err := c.VerifyAggregate(ctx, string(booking.EventBookingCreated))
	if err != nil {
		return Summary{}, err
	}
	s.Aggregate = agg

	perBooking := append(
		lo.FlatMap(s.Revenue, func(r Report, _ int) []Discrepancy { return r.Discrepancies }),
		lo.FlatMap(s.Trails, func(r TrailReport, _ int) []Discrepancy { return r.Discrepancies })...,
	)
	c.record(perBooking)

	s.Discrepancies = perBooking
	if !agg.OK {
		s.Discrepancies = append(s.Discrepancies, aggregateDiscrepancy(agg))
	}
	s.OK = len(s.Discrepancies) == 0
	return s, nil
}

func (c *Checker) record(ds []Discrepancy) {
	for _, d := range ds {
		c.metrics.ConsistencyViolations.WithLabelValues(d.Check).Inc()
		blog.LogConsistencyViolation(c.logger, d.Check, d.BookingID, d.Detail)
	}
}
