package tastywatch

import (
	"math"

	"github.com/etnz/tastywatch/tasty"
	"github.com/shopspring/decimal"
)

var (
	minusOne = decimal.NewFromInt(-1)
	one      = decimal.NewFromInt(1)
	hundred  = decimal.NewFromInt(100)
)

// fromFloat converts a feed float into a decimal. The conversion is total:
// NaN and infinities report ok=false instead of panicking inside the decimal
// library.
func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

// midPrice is the quote midpoint. The mean is taken in float64, the feed's
// own arithmetic, and converted to decimal once.
func midPrice(bid, ask float64) (decimal.Decimal, bool) {
	return fromFloat((bid + ask) / 2)
}

// sign is the aggregation sign of a direction: -1 for Short, +1 otherwise.
// Amounts are stored unsigned; the direction carries the sign.
func sign(d tasty.Direction) decimal.Decimal {
	if d == tasty.Short {
		return minusOne
	}
	return one
}

// roundAmount caps a quantity at five decimal places without padding shorter
// values: a contract count of 2 stays 2, a fractional 0.123456789 becomes
// 0.12346.
func roundAmount(d decimal.Decimal) decimal.Decimal {
	if d.Exponent() >= -5 {
		return d
	}
	return d.Round(5)
}
