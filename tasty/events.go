package tasty

import "github.com/shopspring/decimal"

// Quote is a top-of-book update for one instrument. The feed reports bid and
// ask as float64; NaN stands in for an empty side.
type Quote struct {
	BidPrice float64
	AskPrice float64
}

// Greeks is an option-greeks update. Theta and delta are per-contract,
// per-share values as published by the feed.
type Greeks struct {
	Theta float64
	Delta float64
}

// MarketEvent is one update from the quote stream. Data is *Quote or
// *Greeks; consumers type-switch on it.
type MarketEvent struct {
	Symbol StreamerSymbol
	Data   any
}

// AccountBalance is a balance snapshot pushed by the account stream whenever
// cash moves.
type AccountBalance struct {
	AccountNumber string          `json:"account-number"`
	CashBalance   decimal.Decimal `json:"cash-balance"`
}

// AccountEvent is one update from the account stream. Balance is nil for
// message kinds the dashboard does not consume (order and position updates
// arrive on the same socket).
type AccountEvent struct {
	Balance *AccountBalance
}
