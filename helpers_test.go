package tastywatch

import (
	"reflect"
	"testing"

	"github.com/etnz/tastywatch/tasty"
	"github.com/shopspring/decimal"
)

// pos builds a position the way the API reports one: prices as exact
// decimals, quantity unsigned, the sign carried by the direction.
func pos(t *testing.T, symbol, underlying, openPrice, closePrice, quantity, multiplier string, dir tasty.Direction) tasty.Position {
	t.Helper()
	itype := tasty.InstrumentEquityOption
	if symbol == underlying {
		itype = tasty.InstrumentEquity
	}
	return tasty.Position{
		Symbol:            tasty.Symbol(symbol),
		UnderlyingSymbol:  tasty.Symbol(underlying),
		InstrumentType:    itype,
		AverageOpenPrice:  decimal.RequireFromString(openPrice),
		ClosePrice:        decimal.RequireFromString(closePrice),
		Quantity:          decimal.RequireFromString(quantity),
		Multiplier:        decimal.RequireFromString(multiplier),
		QuantityDirection: dir,
	}
}

// twoGroups is the navigation fixture: AAPL with three legs and MSFT with
// two, in sorted underlying order.
func twoGroups(t *testing.T) *Portfolio {
	t.Helper()
	pf := NewPortfolio()
	pf.AddPosition("AAPL", pos(t, "AAPL", "AAPL", "150.00", "155.00", "10", "1", tasty.Long))
	pf.AddPosition(".AAPL240621C200", pos(t, "AAPL  240621C00200000", "AAPL", "1.00", "1.20", "1", "100", tasty.Long))
	pf.AddPosition(".AAPL240621P120", pos(t, "AAPL  240621P00120000", "AAPL", "2.00", "1.80", "1", "100", tasty.Short))
	pf.AddPosition("MSFT", pos(t, "MSFT", "MSFT", "300.00", "310.00", "5", "1", tasty.Long))
	pf.AddPosition(".MSFT240621C400", pos(t, "MSFT  240621C00400000", "MSFT", "3.00", "2.50", "2", "100", tasty.Long))
	return pf
}

func openAll(pf *Portfolio) {
	for _, u := range pf.Underlyings() {
		pf.Group(u).Open = true
	}
}

// assertSameFrame fails when the two frames differ anywhere.
func assertSameFrame(t *testing.T, want, got Frame) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Errorf("frame changed:\ngot  %v\nwant %v", got.Rows, want.Rows)
	}
}
