// Package log provides JSON-lines structured logging for ridebook.
//
// Log format:
//
//	{"ts":"2026-01-15T10:30:00Z","level":"INFO","msg":"booking transitioned","booking_id":7}
//
// Log levels:
//   - debug: schema steps, per-query detail (RIDEBOOK_DEBUG=1)
//   - info: bookings created, lifecycle transitions
//   - warn: consistency discrepancies
//   - error: storage failures
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config configures the structured logger.
type Config struct {
	// Output is the writer for log output (default: os.Stderr)
	Output io.Writer

	// Level is the minimum log level (default: LevelInfo)
	Level slog.Level

	// Debug enables debug level logging (overrides Level)
	Debug bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: os.Stderr,
		Level:  slog.LevelInfo,
	}
}

// New creates a new JSON-lines structured logger.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	level := cfg.Level
	if cfg.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}

	return slog.New(slog.NewJSONHandler(output, opts))
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// LogSchemaEnsured logs that the schema is present at the given version.
func LogSchemaEnsured(logger *slog.Logger, dbPath string, version int) {
	logger.Info("schema ensured",
		"database_path", dbPath,
		"schema_version", version,
	)
}

// LogBookingCreated logs a new booking.
func LogBookingCreated(logger *slog.Logger, bookingID, userID int64, price string) {
	logger.Info("booking created",
		"booking_id", bookingID,
		"user_id", userID,
		"price", price,
	)
}

// LogTransition logs a lifecycle transition and the event it produced.
func LogTransition(logger *slog.Logger, bookingID int64, from, to, eventType string) {
	logger.Info("booking transitioned",
		"booking_id", bookingID,
		"from", from,
		"to", to,
		"event_type", eventType,
	)
}

// LogTransitionRejected logs a transition the lifecycle refused.
func LogTransitionRejected(logger *slog.Logger, bookingID int64, from, transition string) {
	logger.Warn("transition rejected",
		"booking_id", bookingID,
		"from", from,
		"transition", transition,
	)
}

// LogConsistencyViolation logs a discrepancy found by the checker.
func LogConsistencyViolation(logger *slog.Logger, check string, bookingID int64, detail string) {
	logger.Warn("consistency violation",
		"check", check,
		"booking_id", bookingID,
		"detail", detail,
	)
}

// LogIntegrityViolation logs a write rejected by a storage constraint.
func LogIntegrityViolation(logger *slog.Logger, operation string, err error) {
	logger.Warn("integrity violation", "operation", operation, "error", err)
}

// LogSQLiteError logs SQLite errors.
func LogSQLiteError(logger *slog.Logger, operation string, err error) {
	logger.Error("sqlite error", "operation", operation, "error", err)
}
