package storage

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrIntegrityViolation is matched (via errors.Is) by every error caused by
	// a foreign key, unique, check or not-null constraint rejecting a write.
	ErrIntegrityViolation = errors.New("integrity violation")

	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")

	// ErrBookingNotFound is returned when a booking is not found.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSchemaVersionTooNew is returned when the database was written by a
	// newer build than this one.
	ErrSchemaVersionTooNew = errors.New("database schema version is newer than supported; upgrade ridebook")
)

// Constraint kinds reported on IntegrityError.
const (
	ConstraintForeignKey = "foreign_key"
	ConstraintUnique     = "unique"
	ConstraintCheck      = "check"
	ConstraintNotNull    = "not_null"
	ConstraintOther      = "constraint"
)

// IntegrityError describes a write rejected by a storage constraint.
type IntegrityError struct {
	Op         string
	Constraint string
	Err        error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s constraint failed: %v", e.Op, e.Constraint, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrIntegrityViolation) match any IntegrityError.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityViolation
}

// StorageError is returned when the database cannot be opened, read or
// written. It is fatal to the operation in progress; nothing retries it.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// wrapWriteErr classifies a driver error from a write. Constraint failures
// become *IntegrityError, everything else *StorageError.
func wrapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if kind, ok := constraintKind(err); ok {
		return &IntegrityError{Op: op, Constraint: kind, Err: err}
	}
	return &StorageError{Op: op, Err: err}
}

// wrapReadErr wraps a driver error from a read.
func wrapReadErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// constraintKind reports which constraint, if any, rejected the statement.
func constraintKind(err error) (string, bool) {
	generic := false
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return ConstraintForeignKey, true
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return ConstraintUnique, true
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return ConstraintCheck, true
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return ConstraintNotNull, true
		}
		generic = se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}

	// Without an extended result code only the message says which one failed.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ConstraintForeignKey, true
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ConstraintUnique, true
	case strings.Contains(msg, "CHECK constraint failed"):
		return ConstraintCheck, true
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return ConstraintNotNull, true
	}
	if generic {
		return ConstraintOther, true
	}
	return "", false
}

// isTableNotFoundError checks if the error indicates a missing table.
func isTableNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "no such table")
}
