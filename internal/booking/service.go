package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	blog "github.com/runger/ridebook/internal/log"
	"github.com/runger/ridebook/internal/metrics"
	"github.com/runger/ridebook/internal/storage"
)

// Store is the subset of storage the service needs.
type Store interface {
	WithTx(ctx context.Context, fn func(tx *storage.Tx) error) error
	GetBooking(ctx context.Context, id int64) (*storage.Booking, error)
	ListEvents(ctx context.Context, bookingID int64) ([]storage.BookingEvent, error)
}

// Options configures a Service. Zero values pick defaults.
type Options struct {
	Lifecycle *Lifecycle
	Metrics   *metrics.Counters
	Logger    *slog.Logger
	Now       func() time.Time
}

// Service applies lifecycle operations to stored bookings. Every write
// runs in a single transaction: the status change and its event land
// together or not at all.
type Service struct {
	store     Store
	lifecycle *Lifecycle
	metrics   *metrics.Counters
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a booking service over store.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:     store,
		lifecycle: opts.Lifecycle,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if s.lifecycle == nil {
		s.lifecycle = DefaultLifecycle()
	}
	if s.metrics == nil {
		s.metrics = metrics.Global
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Lifecycle returns the lifecycle the service enforces.
func (s *Service) Lifecycle() *Lifecycle {
	return s.lifecycle
}

// CreateRequest describes a new booking.
type CreateRequest struct {
	UserID  int64
	Pickup  string
	Dropoff string
	Price   decimal.Decimal
}

// Validate checks required fields before touching storage.
func (r CreateRequest) Validate() error {
	if r.UserID <= 0 {
		return errors.New("user id is required")
	}
	if strings.TrimSpace(r.Pickup) == "" {
		return errors.New("pickup is required")
	}
	if strings.TrimSpace(r.Dropoff) == "" {
		return errors.New("dropoff is required")
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("price %s: %w", r.Price, storage.ErrNegativeAmount)
	}
	return nil
}

// History is a booking together with its event trail.
type History struct {
	Booking *storage.Booking
	Events  []storage.BookingEvent
}

// Create inserts a pending booking and its booking_created event.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*storage.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ts := s.now().UnixMilli()
	b := &storage.Booking{
		UserID:          req.UserID,
		Pickup:          req.Pickup,
		Dropoff:         req.Dropoff,
		Price:           req.Price,
		Status:          string(StatusPending),
		CreatedAtUnixMs: ts,
	}

	start := time.Now()
	err := s.store.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, &storage.BookingEvent{
			BookingID: b.ID,
			EventType: string(EventBookingCreated),
			Revenue:   decimal.NewNullDecimal(b.Price),
			TsUnixMs:  ts,
		})
	})
	s.metrics.TxDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.recordWriteErr("create booking", err)
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.metrics.BookingsCreated.Inc()
	blog.LogBookingCreated(s.logger, b.ID, b.UserID, b.Price.StringFixed(2))
	return b, nil
}

// Confirm moves a pending booking to confirmed.
func (s *Service) Confirm(ctx context.Context, id int64) (*storage.Booking, error) {
	return s.Apply(ctx, id, TransitionConfirm)
}

// AssignDriver moves a confirmed booking to driver_assigned.
func (s *Service) AssignDriver(ctx context.Context, id int64) (*storage.Booking, error) {
	return s.Apply(ctx, id, TransitionAssignDriver)
}

// Complete moves a booking with an assigned driver to completed.
func (s *Service) Complete(ctx context.Context, id int64) (*storage.Booking, error) {
	return s.Apply(ctx, id, TransitionComplete)
}

// Cancel cancels a booking that has not reached a terminal status.
func (s *Service) Cancel(ctx context.Context, id int64) (*storage.Booking, error) {
	return s.Apply(ctx, id, TransitionCancel)
}

// Apply runs the named transition on booking id. The status update and the
// appended event share one transaction; earlier events are never touched.
func (s *Service) Apply(ctx context.Context, id int64, name string) (*storage.Booking, error) {
	var (
		b    *storage.Booking
		from Status
		t    Transition
	)

	start := time.Now()
	err := s.store.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		b, err = tx.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		from = Status(b.Status)

		t, err = s.lifecycle.Next(from, name)
		if err != nil {
			return err
		}

		if err := tx.UpdateBookingStatus(ctx, id, string(t.To)); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, &storage.BookingEvent{
			BookingID: id,
			EventType: string(t.Event),
			Revenue:   decimal.NewNullDecimal(b.Price),
			TsUnixMs:  s.now().UnixMilli(),
		}); err != nil {
			return err
		}
		b.Status = string(t.To)
		return nil
	})
	s.metrics.TxDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrUnknownTransition) {
			s.metrics.TransitionsRejected.WithLabelValues(name).Inc()
			blog.LogTransitionRejected(s.logger, id, string(from), name)
		} else {
			s.recordWriteErr(name, err)
		}
		return nil, fmt.Errorf("failed to %s booking %d: %w", name, id, err)
	}

	s.metrics.Transitions.WithLabelValues(string(t.Event)).Inc()
	blog.LogTransition(s.logger, id, string(from), string(t.To), string(t.Event))
	return b, nil
}

// History returns the booking and its events in order.
func (s *Service) History(ctx context.Context, id int64) (*History, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	return &History{Booking: b, Events: events}, nil
}

func (s *Service) recordWriteErr(op string, err error) {
	var storageErr *storage.StorageError
	switch {
	case errors.Is(err, storage.ErrIntegrityViolation):
		s.metrics.IntegrityViolations.Inc()
		blog.LogIntegrityViolation(s.logger, op, err)
	case errors.As(err, &storageErr):
		blog.LogSQLiteError(s.logger, op, err)
	}
}
