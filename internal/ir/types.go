package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeKind identifies the family of a DataType.
type TypeKind uint8

const (
	KindInvalid TypeKind = iota // zero value is an invalid type

	KindNull
	KindBoolean
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindDecimal
	KindString
	KindBinary
	KindDate
	KindTimestamp
	KindInterval
)

var kindNames = map[TypeKind]string{
	KindNull:      "null",
	KindBoolean:   "boolean",
	KindByte:      "byte",
	KindShort:     "short",
	KindInt:       "int",
	KindLong:      "long",
	KindFloat:     "float",
	KindDouble:    "double",
	KindDecimal:   "decimal",
	KindString:    "string",
	KindBinary:    "binary",
	KindDate:      "date",
	KindTimestamp: "timestamp",
	KindInterval:  "interval",
}

// String returns the lower-case name of the kind.
func (k TypeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Host decimal limits. Decimal results wider than MaxHostPrecision overflow
// to NULL in the host engine.
const (
	MaxHostPrecision = 38
	MaxHostScale     = 38
)

// DataType is a host engine type. Precision and Scale are only meaningful
// for KindDecimal.
type DataType struct {
	Kind      TypeKind
	Precision int
	Scale     int
}

// Predefined non-parameterized types.
var (
	Null      = DataType{Kind: KindNull}
	Boolean   = DataType{Kind: KindBoolean}
	Byte      = DataType{Kind: KindByte}
	Short     = DataType{Kind: KindShort}
	Int       = DataType{Kind: KindInt}
	Long      = DataType{Kind: KindLong}
	Float     = DataType{Kind: KindFloat}
	Double    = DataType{Kind: KindDouble}
	String    = DataType{Kind: KindString}
	Binary    = DataType{Kind: KindBinary}
	Date      = DataType{Kind: KindDate}
	Timestamp = DataType{Kind: KindTimestamp}
	Interval  = DataType{Kind: KindInterval}
)

// Decimal returns a decimal type with the given precision and scale.
func Decimal(precision, scale int) DataType {
	return DataType{Kind: KindDecimal, Precision: precision, Scale: scale}
}

// String returns the canonical textual form, e.g. "long" or "decimal(10,2)".
func (t DataType) String() string {
	if t.Kind == KindDecimal {
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	}
	return t.Kind.String()
}

// IsValid reports whether t is a known, well-formed type.
func (t DataType) IsValid() bool {
	if _, ok := kindNames[t.Kind]; !ok {
		return false
	}
	if t.Kind == KindDecimal {
		return t.Precision > 0 && t.Scale >= 0 && t.Scale <= t.Precision
	}
	return true
}

// IsIntegral reports whether t is byte, short, int or long.
func (t DataType) IsIntegral() bool {
	switch t.Kind {
	case KindByte, KindShort, KindInt, KindLong:
		return true
	}
	return false
}

// IsFractional reports whether t is an approximate numeric type.
func (t DataType) IsFractional() bool {
	return t.Kind == KindFloat || t.Kind == KindDouble
}

// IsExact reports whether t is an integral or decimal type.
func (t DataType) IsExact() bool {
	return t.IsIntegral() || t.Kind == KindDecimal
}

// IsNumeric reports whether t is any numeric type.
func (t DataType) IsNumeric() bool {
	return t.IsExact() || t.IsFractional()
}

// BitWidth returns the storage width of an integral type, or 0.
func (t DataType) BitWidth() int {
	switch t.Kind {
	case KindByte:
		return 8
	case KindShort:
		return 16
	case KindInt:
		return 32
	case KindLong:
		return 64
	}
	return 0
}

// IntegralDigits returns the number of digits left of the decimal point an
// exact type can hold. Integral types are treated as the decimal the host
// engine would widen them to.
func (t DataType) IntegralDigits() int {
	switch t.Kind {
	case KindByte:
		return 3
	case KindShort:
		return 5
	case KindInt:
		return 10
	case KindLong:
		return 20
	case KindDecimal:
		return t.Precision - t.Scale
	}
	return 0
}

// ParseType parses the textual form produced by String. Matching is
// case-insensitive and a few common aliases are accepted.
func ParseType(s string) (DataType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(name, "decimal") {
		return parseDecimal(name)
	}
	switch name {
	case "null", "void":
		return Null, nil
	case "boolean", "bool":
		return Boolean, nil
	case "byte", "tinyint":
		return Byte, nil
	case "short", "smallint":
		return Short, nil
	case "int", "integer":
		return Int, nil
	case "long", "bigint":
		return Long, nil
	case "float", "real":
		return Float, nil
	case "double":
		return Double, nil
	case "string", "text":
		return String, nil
	case "binary":
		return Binary, nil
	case "date":
		return Date, nil
	case "timestamp":
		return Timestamp, nil
	case "interval":
		return Interval, nil
	}
	return DataType{}, fmt.Errorf("unknown type %q", s)
}

func parseDecimal(name string) (DataType, error) {
	rest := strings.TrimPrefix(name, "decimal")
	if rest == "" {
		// host default
		return Decimal(10, 0), nil
	}
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return DataType{}, fmt.Errorf("malformed decimal type %q", name)
	}
	parts := strings.Split(rest[1:len(rest)-1], ",")
	if len(parts) != 2 {
		return DataType{}, fmt.Errorf("malformed decimal type %q", name)
	}
	p, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return DataType{}, fmt.Errorf("decimal precision: %w", err)
	}
	sc, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return DataType{}, fmt.Errorf("decimal scale: %w", err)
	}
	t := Decimal(p, sc)
	if !t.IsValid() {
		return DataType{}, fmt.Errorf("invalid decimal type %q", name)
	}
	return t, nil
}
