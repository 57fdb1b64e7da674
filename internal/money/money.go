package money

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal" // Decimal parsing/formatting at the JSON boundary
)

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Minor is a monetary amount in currency minor units (e.g. cents).
// All balance arithmetic is plain integer arithmetic on this type;
// decimals exist only at the serialization boundary.
type Minor int64

// FromDecimal converts a decimal amount (major units) to minor units.
// Amounts with more than two fractional digits are rejected, as are
// amounts whose minor-unit value does not fit in an int64 (IntPart would
// silently wrap them).
func FromDecimal(d decimal.Decimal) (Minor, error) {
	shifted := d.Shift(2) // Move to minor units
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than two decimal places", d)
	}
	if shifted.Cmp(maxMinor) > 0 || shifted.Cmp(minMinor) < 0 {
		return 0, fmt.Errorf("amount %s is out of range", d)
	}
	return Minor(shifted.IntPart()), nil
}

// Parse converts a decimal string ("500", "123.45") to minor units.
func Parse(s string) (Minor, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return FromDecimal(d)
}

// Decimal returns the amount in major units.
func (m Minor) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Shift(-2)
}

// String formats the amount in major units ("123.45").
func (m Minor) String() string {
	return m.Decimal().String()
}

// MarshalJSON emits the amount as a plain JSON number in major units,
// matching what API clients send and render.
func (m Minor) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts both JSON numbers (500.5) and quoted decimal
// strings ("500.50").
func (m *Minor) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
