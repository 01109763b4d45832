package storage

import (
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeAmount is returned when a price is below zero.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrSubCentPrecision is returned for amounts finer than one cent.
	ErrSubCentPrecision = errors.New("amount has more than two decimal places")

	// ErrAmountOutOfRange is returned when the amount in cents does not fit
	// in an int64.
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// centsExp is the exponent between a currency unit and its minor unit.
const centsExp = 2

// ToCents converts an amount to integer minor units without rounding.
func ToCents(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(centsExp)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrSubCentPrecision
	}
	if !shifted.BigInt().IsInt64() {
		return 0, ErrAmountOutOfRange
	}
	return shifted.IntPart(), nil
}

// FromCents converts integer minor units back to an amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -centsExp)
}

func priceToCents(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	return ToCents(d)
}

func nullableCents(d decimal.NullDecimal) (sql.NullInt64, error) {
	if !d.Valid {
		return sql.NullInt64{}, nil
	}
	c, err := ToCents(d.Decimal)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: c, Valid: true}, nil
}

func nullDecimalFromCents(c sql.NullInt64) decimal.NullDecimal {
	if !c.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: FromCents(c.Int64), Valid: true}
}
