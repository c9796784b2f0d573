// Package tui renders the portfolio dashboard in the terminal.
//
// The model owns nothing but a portfolio and its cursor. Market and account
// events arrive over channels and are folded into the portfolio one message
// at a time; the view rebuilds the whole table from scratch on every paint,
// so there is no cell-level invalidation to get wrong.
package tui
