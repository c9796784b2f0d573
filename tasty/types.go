package tasty

import "github.com/shopspring/decimal"

// Symbol is an instrument symbol in the brokerage's alphabet: a plain ticker
// for shares ("AAPL") or an OCC-style contract symbol for options
// ("SPY   240621P00400000").
type Symbol string

// StreamerSymbol is the same instrument in the market-data feed's alphabet
// (".SPY240621P400" for the contract above). The two never mix, hence the
// distinct type; translation goes through Session.StreamerSymbol.
type StreamerSymbol string

// InstrumentType mirrors the API's instrument-type values.
type InstrumentType string

const (
	InstrumentEquity         InstrumentType = "Equity"
	InstrumentEquityOption   InstrumentType = "Equity Option"
	InstrumentFuture         InstrumentType = "Future"
	InstrumentFutureOption   InstrumentType = "Future Option"
	InstrumentCryptocurrency InstrumentType = "Cryptocurrency"
)

// Direction is the holding direction of a position. Quantities are reported
// unsigned; the direction carries the sign.
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
	Zero  Direction = "Zero"
)

// Account identifies one brokerage account of the logged-in customer.
type Account struct {
	AccountNumber string `json:"account-number"`
	Nickname      string `json:"nickname"`
	AccountType   string `json:"account-type-name"`
}

// Number returns the account number used to key balances and streamer
// subscriptions.
func (a Account) Number() string { return a.AccountNumber }

// Position is one open leg as reported by the positions endpoint. The API
// quotes prices and quantities as decimal strings; they are decoded exactly,
// never through float64.
type Position struct {
	Symbol            Symbol          `json:"symbol"`
	UnderlyingSymbol  Symbol          `json:"underlying-symbol"`
	InstrumentType    InstrumentType  `json:"instrument-type"`
	AverageOpenPrice  decimal.Decimal `json:"average-open-price"`
	ClosePrice        decimal.Decimal `json:"close-price"`
	Quantity          decimal.Decimal `json:"quantity"`
	Multiplier        decimal.Decimal `json:"multiplier"`
	QuantityDirection Direction       `json:"quantity-direction"`
}

// Balance carries the cash fields of the balances endpoint. The dashboard
// only consumes cash-balance; the remaining fields stay on the wire.
type Balance struct {
	AccountNumber string          `json:"account-number"`
	CashBalance   decimal.Decimal `json:"cash-balance"`
}
