// Package storage provides SQLite-based persistent storage for ridebook.
// It owns the schema for users, bookings and the append-only booking event
// log, and enforces referential integrity through SQLite foreign keys.
package storage

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store defines the interface for all storage operations.
type Store interface {
	// Schema
	EnsureSchema(ctx context.Context) error
	ValidateSchema(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)

	// Users
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// Bookings
	CreateBooking(ctx context.Context, b *Booking) error
	GetBooking(ctx context.Context, id int64) (*Booking, error)
	GetBookingByReference(ctx context.Context, ref string) (*Booking, error)
	QueryBookings(ctx context.Context, q BookingQuery) ([]Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status string) error
	DeleteBooking(ctx context.Context, id int64) error

	// Events
	AppendEvent(ctx context.Context, e *BookingEvent) error
	ListEvents(ctx context.Context, bookingID int64) ([]BookingEvent, error)
	CountEvents(ctx context.Context, bookingID int64) (int, error)

	// Transactions
	WithTx(ctx context.Context, fn func(tx *Tx) error) error

	// Lifecycle
	Close() error
}

// User is a registered rider.
type User struct {
	ID              int64
	Name            string
	Email           string
	CreatedAtUnixMs int64
}

// Booking is a single requested transfer from Pickup to Dropoff.
// Price is fixed at creation.
type Booking struct {
	ID              int64
	Reference       string // uuid, generated when empty
	UserID          int64
	Pickup          string
	Dropoff         string
	Price           decimal.Decimal
	Status          string // defaults to "pending"
	CreatedAtUnixMs int64
}

// BookingEvent is an immutable record of a booking lifecycle step.
type BookingEvent struct {
	ID        int64
	EventID   string // uuid, generated when empty
	BookingID int64
	EventType string
	Revenue   decimal.NullDecimal
	TsUnixMs  int64
}

// BookingQuery defines parameters for querying bookings.
type BookingQuery struct {
	UserID int64  // 0 = any user
	Status string // "" = any status
	Limit  int
	Offset int
}
