package ir

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Value is a sealed interface representing a host engine literal value.
// Only NullValue, BoolValue, IntValue, FloatValue, DecimalValue, StringValue,
// BytesValue, DateValue, TimestampValue and IntervalValue implement it.
type Value interface {
	fmt.Stringer
	value() // Sealed - only these types implement it
}

// NullValue is the SQL NULL literal. Its type comes from the enclosing
// literal expression.
type NullValue struct{}

func (NullValue) value()         {}
func (NullValue) String() string { return "null" }

// BoolValue is a boolean literal.
type BoolValue bool

func (BoolValue) value() {}
func (v BoolValue) String() string {
	return strconv.FormatBool(bool(v))
}

// IntValue holds every integral literal (byte through long).
type IntValue int64

func (IntValue) value() {}
func (v IntValue) String() string {
	return strconv.FormatInt(int64(v), 10)
}

// FloatValue holds float and double literals.
type FloatValue float64

func (FloatValue) value() {}
func (v FloatValue) String() string {
	return strconv.FormatFloat(float64(v), 'g', -1, 64)
}

// IsFinite reports whether the value is neither NaN nor infinite.
func (v FloatValue) IsFinite() bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// DecimalValue is an exact decimal literal.
type DecimalValue struct {
	decimal.Decimal
}

func (DecimalValue) value() {}

// NewDecimal parses s as an exact decimal literal.
func NewDecimal(s string) (DecimalValue, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return DecimalValue{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return DecimalValue{Decimal: d}, nil
}

// Digits returns the precision and scale needed to represent the value
// exactly, using the host's convention that precision >= scale.
func (v DecimalValue) Digits() (precision, scale int) {
	scale = 0
	if exp := v.Exponent(); exp < 0 {
		scale = int(-exp)
	}
	coef := v.Coefficient().String()
	if coef[0] == '-' {
		coef = coef[1:]
	}
	precision = len(coef)
	if v.Exponent() > 0 {
		precision += int(v.Exponent())
	}
	if precision < scale {
		precision = scale
	}
	return precision, scale
}

// StringValue is a character literal.
type StringValue string

func (StringValue) value() {}
func (v StringValue) String() string {
	return strconv.Quote(string(v))
}

// BytesValue is a raw binary literal.
type BytesValue []byte

func (BytesValue) value() {}
func (v BytesValue) String() string {
	return "X'" + hex.EncodeToString(v) + "'"
}

// DateValue is a calendar date (time of day is ignored).
type DateValue struct {
	time.Time
}

func (DateValue) value() {}
func (v DateValue) String() string {
	return v.UTC().Format(DateLayout)
}

// NewDate builds a DateValue at midnight UTC.
func NewDate(year int, month time.Month, day int) DateValue {
	return DateValue{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// TimestampValue is an instant, rendered in UTC.
type TimestampValue struct {
	time.Time
}

func (TimestampValue) value() {}
func (v TimestampValue) String() string {
	return v.UTC().Format(TimestampLayout)
}

// IntervalValue is a calendar interval. The store has no interval literal
// equivalent, so these never reach SQL.
type IntervalValue struct {
	Months int32
	Days   int32
	Micros int64
}

func (IntervalValue) value() {}
func (v IntervalValue) String() string {
	return fmt.Sprintf("interval(%dm %dd %dus)", v.Months, v.Days, v.Micros)
}

// Layouts used when binding temporal values as SQL arguments.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05.999999"
)

// ParseDate parses a DateLayout string.
func ParseDate(s string) (DateValue, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return DateValue{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateValue{Time: t}, nil
}

// ParseTimestamp parses a TimestampLayout (or RFC 3339) string as UTC.
func ParseTimestamp(s string) (TimestampValue, error) {
	if t, err := time.ParseInLocation(TimestampLayout, s, time.UTC); err == nil {
		return TimestampValue{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return TimestampValue{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return TimestampValue{Time: t.UTC()}, nil
}
