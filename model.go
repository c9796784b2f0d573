package tastywatch

import (
	"slices"

	"github.com/etnz/tastywatch/tasty"
	"github.com/shopspring/decimal"
)

// PriceRecord is one open position leg together with its latest market data.
// Open and Current are prices per share; Amount is the unsigned quantity
// with the sign carried by Direction.
type PriceRecord struct {
	Symbol     tasty.Symbol
	Open       decimal.Decimal
	Current    decimal.Decimal
	Amount     decimal.Decimal
	Multiplier decimal.Decimal
	Direction  tasty.Direction
	Greeks     tasty.Greeks
}

// toNet scales a per-share value to the whole signed position, rounded to
// two places.
func (r *PriceRecord) toNet(d decimal.Decimal) decimal.Decimal {
	return d.Mul(r.Amount).Mul(r.Multiplier).Mul(sign(r.Direction)).Round(2)
}

// signedValue is the signed mark-to-market value of the position.
func (r *PriceRecord) signedValue() decimal.Decimal { return r.toNet(r.Current) }

// profit is the signed gain over the open price.
func (r *PriceRecord) profit() decimal.Decimal { return r.toNet(r.Current.Sub(r.Open)) }

// UnderlyingGroup is the set of position legs sharing one underlying, in
// sorted streamer-symbol order, plus the expansion flag of its table row.
type UnderlyingGroup struct {
	Open    bool
	symbols []tasty.StreamerSymbol
	records map[tasty.StreamerSymbol]*PriceRecord
}

func newUnderlyingGroup() *UnderlyingGroup {
	return &UnderlyingGroup{records: make(map[tasty.StreamerSymbol]*PriceRecord)}
}

// Symbols returns the group's streamer symbols in sorted order.
func (g *UnderlyingGroup) Symbols() []tasty.StreamerSymbol { return g.symbols }

// Record returns the leg keyed by a streamer symbol, nil when absent.
func (g *UnderlyingGroup) Record(s tasty.StreamerSymbol) *PriceRecord { return g.records[s] }

// Len is the number of legs in the group.
func (g *UnderlyingGroup) Len() int { return len(g.symbols) }

func (g *UnderlyingGroup) insert(s tasty.StreamerSymbol, r *PriceRecord) {
	if _, ok := g.records[s]; !ok {
		i, _ := slices.BinarySearch(g.symbols, s)
		g.symbols = slices.Insert(g.symbols, i, s)
	}
	g.records[s] = r
}

// Portfolio is the dashboard state: positions grouped by underlying and the
// cash balance of every account. Groups iterate in sorted underlying order,
// accounts in sorted number order.
//
// Positions are filed once at startup; afterwards only Current, Greeks, the
// balances and the groups' Open flags change. The streamer-symbol index
// spans all groups, so applying an event is a single lookup.
type Portfolio struct {
	underlyings []tasty.Symbol
	groups      map[tasty.Symbol]*UnderlyingGroup
	accounts    []string
	balances    map[string]decimal.Decimal
	index       map[tasty.StreamerSymbol]*PriceRecord
}

// NewPortfolio returns an empty portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{
		groups:   make(map[tasty.Symbol]*UnderlyingGroup),
		balances: make(map[string]decimal.Decimal),
		index:    make(map[tasty.StreamerSymbol]*PriceRecord),
	}
}

// AddPosition files a position under its underlying, keyed by the streamer
// symbol the feed will publish it under. Prices are pinned to two places;
// Current starts at the close price until the first quote lands.
func (p *Portfolio) AddPosition(streamer tasty.StreamerSymbol, pos tasty.Position) {
	rec := &PriceRecord{
		Symbol:     pos.Symbol,
		Open:       pos.AverageOpenPrice.Round(2),
		Current:    pos.ClosePrice.Round(2),
		Amount:     pos.Quantity,
		Multiplier: pos.Multiplier,
		Direction:  pos.QuantityDirection,
	}
	g, ok := p.groups[pos.UnderlyingSymbol]
	if !ok {
		g = newUnderlyingGroup()
		p.groups[pos.UnderlyingSymbol] = g
		i, _ := slices.BinarySearch(p.underlyings, pos.UnderlyingSymbol)
		p.underlyings = slices.Insert(p.underlyings, i, pos.UnderlyingSymbol)
	}
	g.insert(streamer, rec)
	p.index[streamer] = rec
}

// ApplyQuote stores the quote midpoint as the record's current price. A
// midpoint that is not finite leaves the record unchanged; an unknown symbol
// is ignored.
func (p *Portfolio) ApplyQuote(s tasty.StreamerSymbol, bid, ask float64) {
	rec := p.index[s]
	if rec == nil {
		return
	}
	mid, ok := midPrice(bid, ask)
	if !ok {
		return
	}
	rec.Current = mid
}

// ApplyGreeks overwrites the record's greeks. An unknown symbol is ignored.
func (p *Portfolio) ApplyGreeks(s tasty.StreamerSymbol, theta, delta float64) {
	rec := p.index[s]
	if rec == nil {
		return
	}
	rec.Greeks = tasty.Greeks{Theta: theta, Delta: delta}
}

// ApplyBalance overwrites one account's cash balance, creating the entry for
// accounts first seen through the stream. Last write wins.
func (p *Portfolio) ApplyBalance(account string, cash decimal.Decimal) {
	if _, ok := p.balances[account]; !ok {
		i, _ := slices.BinarySearch(p.accounts, account)
		p.accounts = slices.Insert(p.accounts, i, account)
	}
	p.balances[account] = cash
}

// Underlyings returns the group keys in sorted order.
func (p *Portfolio) Underlyings() []tasty.Symbol { return p.underlyings }

// Group returns the group of an underlying, nil when absent.
func (p *Portfolio) Group(u tasty.Symbol) *UnderlyingGroup { return p.groups[u] }

// Accounts returns the known account numbers in sorted order.
func (p *Portfolio) Accounts() []string { return p.accounts }

// Balance returns the cash balance of an account.
func (p *Portfolio) Balance(account string) decimal.Decimal { return p.balances[account] }

// Record returns the position keyed by a streamer symbol, nil when absent.
func (p *Portfolio) Record(s tasty.StreamerSymbol) *PriceRecord { return p.index[s] }

// Symbols returns every streamer symbol in the portfolio, grouped by
// underlying. This is the feed subscription list.
func (p *Portfolio) Symbols() []tasty.StreamerSymbol {
	symbols := make([]tasty.StreamerSymbol, 0, len(p.index))
	for _, u := range p.underlyings {
		symbols = append(symbols, p.groups[u].Symbols()...)
	}
	return symbols
}

// NumLines is the number of selectable table rows in the current
// flattening: one header per group plus the legs of every open group.
func (p *Portfolio) NumLines() int {
	n := len(p.underlyings)
	for _, g := range p.groups {
		if g.Open {
			n += g.Len()
		}
	}
	return n
}
