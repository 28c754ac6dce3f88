package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (paise, cents).
type Money int64

var hundred = decimal.NewFromInt(100)

// Percent returns pct percent of m, rounded half away from zero to the minor unit.
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money(decimal.NewFromInt(int64(m)).Mul(pct).Div(hundred).Round(0).IntPart())
}

// Times multiplies m by an integer quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// Min returns the smaller of m and other.
func (m Money) Min(other Money) Money {
	if other < m {
		return other
	}
	return m
}

// String formats m in major units with two decimals.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// PercentFromBasisPoints converts stored basis points (1050 = 10.50%) into a percentage.
func PercentFromBasisPoints(bps int64) decimal.Decimal {
	return decimal.New(bps, -2)
}

// BasisPoints converts a percentage into basis points for storage.
func BasisPoints(pct decimal.Decimal) int64 {
	return pct.Mul(hundred).Round(0).IntPart()
}
