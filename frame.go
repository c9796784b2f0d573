package tastywatch

import (
	"math"

	"github.com/etnz/tastywatch/tasty"
	"github.com/shopspring/decimal"
)

// Columns are the table titles, in display order.
var Columns = [9]string{"PORT %", "SYMBOL", "CURRENT", "AMOUNT", "TRADE PRICE", "PROFIT", "THETA", "DELTA", "NET LIQ"}

// ColumnWidths are the fixed cell widths matching Columns.
var ColumnWidths = [9]int{8, 25, 12, 12, 12, 12, 12, 12, 12}

// Frame is one complete table, ready to paint. The first SelectableRows rows
// are the group and leg rows the cursor can address; the cash and total rows
// after them are fixed.
type Frame struct {
	Rows           [][9]string
	SelectableRows int
}

// BuildFrame flattens the portfolio into table rows.
//
// The percentage denominator is the positions-only total, fixed before any
// row is emitted; cash joins the running total only for the TOTAL row.
// Group headers carry the group's profit and net-liq sums whether or not the
// group is open. Closed groups emit no leg rows.
func BuildFrame(p *Portfolio) Frame {
	positionTotal := decimal.Zero
	for _, u := range p.Underlyings() {
		g := p.Group(u)
		for _, s := range g.Symbols() {
			positionTotal = positionTotal.Add(g.Record(s).signedValue())
		}
	}

	var rows [][9]string
	for _, u := range p.Underlyings() {
		g := p.Group(u)
		header := len(rows)
		rows = append(rows, [9]string{})

		profitSum := decimal.Zero
		netLiqSum := decimal.Zero
		for _, s := range g.Symbols() {
			rec := g.Record(s)
			profit := rec.profit()
			profitSum = profitSum.Add(profit)
			netLiq := rec.signedValue()
			netLiqSum = netLiqSum.Add(netLiq)
			if !g.Open {
				continue
			}
			rows = append(rows, [9]string{
				percent(netLiq, positionTotal),
				" " + displayName(rec.Symbol, u),
				money2(rec.Current),
				natural(roundAmount(rec.Amount.Mul(sign(rec.Direction)))),
				money2(rec.Open),
				money2(profit),
				netCell(rec, rec.Greeks.Theta),
				netCell(rec, rec.Greeks.Delta),
				money2(netLiq),
			})
		}
		rows[header] = [9]string{
			percent(netLiqSum, positionTotal),
			string(u),
			"", "", "",
			money2(profitSum),
			"", "",
			money2(netLiqSum),
		}
	}
	selectable := len(rows)

	total := positionTotal
	rows = append(rows, [9]string{}, [9]string{"CASH"})
	for _, account := range p.Accounts() {
		balance := p.Balance(account)
		rows = append(rows, [9]string{" " + account, natural(balance)})
		total = total.Add(balance)
	}
	rows = append(rows, [9]string{}, [9]string{"TOTAL", natural(total)})

	return Frame{Rows: rows, SelectableRows: selectable}
}

// displayName aliases the leg that is the underlying itself to SHARES, so an
// equity leg reads " SHARES" under its group instead of repeating the
// ticker.
func displayName(sym, underlying tasty.Symbol) string {
	if sym == underlying {
		return "SHARES"
	}
	return string(sym)
}

// money2 renders a monetary value with exactly two places, half away from
// zero.
func money2(d decimal.Decimal) string { return d.StringFixed(2) }

// natural renders a decimal at its arithmetic scale, the way values come off
// the wire: 2550.00 keeps its places, a bare 1200 stays bare.
func natural(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// percent renders num as a share of den. A zero denominator must not crash
// the frame: a zero numerator shows 0.00% and anything else the NaN marker,
// mirroring what the float division would say.
func percent(num, den decimal.Decimal) string {
	if den.IsZero() {
		if num.IsZero() {
			return "0.00%"
		}
		return "NaN%"
	}
	return num.Mul(hundred).Div(den).StringFixed(2) + "%"
}

// netCell renders a per-share greek scaled to the signed position. Values
// the feed reports as NaN or infinite render as their token; they are never
// summed, so they cannot poison the monetary columns.
func netCell(rec *PriceRecord, f float64) string {
	d, ok := fromFloat(f)
	if !ok {
		return floatToken(f)
	}
	return money2(rec.toNet(d))
}

func floatToken(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return "NaN"
	}
}
