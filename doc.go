// Package tastywatch models a live brokerage portfolio for a terminal
// dashboard.
//
// The model is built once at startup from downloaded positions and balances.
// From then on three kinds of updates flow in: quote midpoints and greeks
// keyed by streamer symbol, and cash balances keyed by account number. All
// monetary arithmetic is exact decimal; feed floats are converted at the
// boundary and a non-finite value never replaces a good one.
//
// Navigation tracks the cursor over the flattened table of group headers
// and, for open groups, their legs. BuildFrame turns the portfolio into the
// rows the tui package paints.
package tastywatch
