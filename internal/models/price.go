package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Prices are stored as integer minor units and cross the API boundary as
// decimal strings/floats. Parsing multiplies by 100 and rounds half away
// from zero, so "9.995" stores as 1000.

func PriceToMinor(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("price must not be negative")
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

func PriceToFloat(minor int64) float64 {
	return decimal.New(minor, -2).InexactFloat64()
}

func PriceToString(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
