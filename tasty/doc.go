// Package tasty is a small client for the tastytrade brokerage: a REST
// session for accounts, positions and balances, plus websocket streamers for
// account notifications and dxLink market data.
//
// The package covers exactly what the dashboard consumes. Prices that the
// API quotes as decimal strings decode into shopspring decimals and stay
// exact; feed prices are float64 because that is what the feed publishes.
package tasty
