package domain

import (
	"fmt"
	"math/big"
)

// Decimal is a fixed-point monetary amount. Values are stored as an
// integer number of minor units (e.g. cents/deni) to keep arithmetic
// exact; European-formatted currency strings are parsed into this type
// by pagemodel's currency parser rather than through float64.
type Decimal struct {
	// Units is the amount expressed in minor units (1/100 of the major
	// currency unit), matching the precision the portals publish.
	Units int64
}

// NewDecimalFromMajor builds a Decimal from a whole-and-fractional
// major-unit pair, e.g. NewDecimalFromMajor(1234567, 0) for 1,234,567.00.
func NewDecimalFromMajor(major int64, minor int64) Decimal {
	return Decimal{Units: major*100 + minor}
}

// Float64 converts to a float64 for statistical computation (feature
// extraction). Never used for storage or comparison of exact amounts.
func (d Decimal) Float64() float64 {
	return float64(d.Units) / 100.0
}

// Ratio returns d / other as a float64, or (0, false) if other is zero.
func (d Decimal) Ratio(other Decimal) (float64, bool) {
	if other.Units == 0 {
		return 0, false
	}
	return d.Float64() / other.Float64(), true
}

// Equal reports exact equality at minor-unit precision.
func (d Decimal) Equal(other Decimal) bool {
	return d.Units == other.Units
}

// String renders using '.' thousands and ',' decimal separators, the
// same European format the portals publish in.
func (d Decimal) String() string {
	neg := d.Units < 0
	units := d.Units
	if neg {
		units = -units
	}
	major := units / 100
	minor := units % 100

	// Insert '.' every three digits from the right of the major part.
	majorStr := fmt.Sprintf("%d", major)
	var grouped []byte
	for i, c := range []byte(majorStr) {
		if i != 0 && (len(majorStr)-i)%3 == 0 {
			grouped = append(grouped, '.')
		}
		grouped = append(grouped, c)
	}
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%s,%02d", sign, string(grouped), minor)
}

// Rat returns an exact *big.Rat representation, useful for lot-sum
// comparisons where repeated Decimal addition could otherwise be
// ambiguous about rounding.
func (d Decimal) Rat() *big.Rat {
	return big.NewRat(d.Units, 100)
}
