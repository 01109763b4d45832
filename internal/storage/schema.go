package storage

// SchemaVersion is the newest schema version this code knows how to apply.
// EnsureSchema refuses to touch a database that reports a higher version.
const SchemaVersion = 3

// AllTables lists every table the current schema creates.
var AllTables = []string{
	"schema_meta",
	"users",
	"bookings",
	"booking_events",
}

// AllIndexes lists every index the current schema creates.
var AllIndexes = []string{
	"idx_bookings_user",
	"idx_bookings_status",
	"idx_booking_events_booking",
	"idx_booking_events_type",
}

// migration is a single forward-only schema step.
type migration struct {
	version int
	sql     string
}

// migrations returns the schema steps in the order they must be applied.
func migrations() []migration {
	return []migration{
		{version: 1, sql: schemaV1},
		{version: 2, sql: schemaV2},
		{version: 3, sql: schemaV3},
	}
}

// schemaV1 creates the core booking tables.
//
// Monetary columns hold fixed-point minor units (cents). SQLite has no exact
// DECIMAL storage class, and integer cents keep SUM() free of float drift.
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_meta (
  version INTEGER PRIMARY KEY,
  applied_at_unix_ms INTEGER NOT NULL
);

-- Users
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  created_at_unix_ms INTEGER NOT NULL
);

-- Bookings
CREATE TABLE IF NOT EXISTS bookings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  reference TEXT NOT NULL UNIQUE,
  user_id INTEGER NOT NULL REFERENCES users(id),
  pickup TEXT NOT NULL,
  dropoff TEXT NOT NULL,
  price_cents INTEGER NOT NULL CHECK (price_cents >= 0),
  status TEXT NOT NULL DEFAULT 'pending',
  created_at_unix_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id);

-- Booking events (append-only analytics log)
CREATE TABLE IF NOT EXISTS booking_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  event_id TEXT NOT NULL UNIQUE,
  booking_id INTEGER NOT NULL REFERENCES bookings(id),
  event_type TEXT NOT NULL,
  revenue_cents INTEGER,
  ts_unix_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_booking_events_booking ON booking_events(booking_id, ts_unix_ms);
`

// schemaV2 adds the reporting indexes.
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status);
CREATE INDEX IF NOT EXISTS idx_booking_events_type ON booking_events(event_type);
`

// schemaV3 keys the per-booking event index on id, the order trails are
// read in. ts_unix_ms is informational and may step backwards.
const schemaV3 = `
DROP INDEX IF EXISTS idx_booking_events_booking;
CREATE INDEX IF NOT EXISTS idx_booking_events_booking ON booking_events(booking_id, id);
`
