// Command tastywatch signs into tastytrade and paints the account's open
// positions as a live terminal dashboard.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/etnz/tastywatch"
	"github.com/etnz/tastywatch/tasty"
	"github.com/etnz/tastywatch/tui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// version is stamped by the release build.
var version = "dev"

const (
	loginEnv    = "TASTY_LOGIN"
	passwordEnv = "TASTY_PASSWORD"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		login    string
		password string
		logFile  string
	)
	cmd := &cobra.Command{
		Use:     "tastywatch",
		Short:   "Live tastytrade portfolio dashboard in the terminal",
		Version: version,
		Long: `tastywatch signs into tastytrade, downloads every account's open
positions and keeps them on screen: positions grouped by underlying,
mid prices and greeks streamed from the market data feed, cash balances
streamed from the account feed.

Keyboard:
  up/down   move the selection, wrapping at the ends
  space     expand or collapse the selected underlying
  q         quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			login, password, err := credentials(login, password)
			if err != nil {
				return err
			}
			log, closeLog, err := newLogger(logFile)
			if err != nil {
				return err
			}
			defer closeLog()
			return run(cmd.Context(), login, password, log)
		},
	}
	cmd.Flags().StringVarP(&login, "login", "l", "", "tastytrade login, defaults to "+loginEnv)
	cmd.Flags().StringVarP(&password, "password", "p", "", "tastytrade password, defaults to "+passwordEnv)
	cmd.Flags().StringVar(&logFile, "log-file", "", "append debug logs to this file; stdout belongs to the dashboard")
	cmd.SilenceUsage = true
	return cmd
}

// credentials resolves login and password, the flags taking precedence over
// the environment variables.
func credentials(login, password string) (string, string, error) {
	if login == "" {
		login = os.Getenv(loginEnv)
	}
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	if login == "" || password == "" {
		return "", "", fmt.Errorf("missing credentials: pass --login and --password or set %s and %s", loginEnv, passwordEnv)
	}
	return login, password, nil
}

// newLogger returns a debug logger appending to path, or a discarding one
// when no path is given.
func newLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open log file %q: %w", path, err)
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return log, func() { f.Close() }, nil
}

func run(ctx context.Context, login, password string, log *slog.Logger) error {
	client := tasty.NewClient()
	client.Logger = log

	fmt.Println("Logging in...")
	session, err := client.Login(ctx, login, password)
	if err != nil {
		return err
	}

	accountStream, err := session.OpenAccountStreamer(ctx)
	if err != nil {
		return err
	}
	defer accountStream.Close()

	fmt.Println("Downloading account info...")
	accounts, err := session.Accounts(ctx)
	if err != nil {
		return err
	}
	portfolio := tastywatch.NewPortfolio()
	var positions []tasty.Position
	numbers := make([]string, 0, len(accounts))
	for _, a := range accounts {
		numbers = append(numbers, a.Number())
		ps, err := session.Positions(ctx, a.Number())
		if err != nil {
			return err
		}
		positions = append(positions, ps...)
		balance, err := session.Balances(ctx, a.Number())
		if err != nil {
			return err
		}
		portfolio.ApplyBalance(a.Number(), balance.CashBalance)
	}
	if err := accountStream.Subscribe(numbers); err != nil {
		return err
	}

	// Every position needs its feed symbol before the dashboard can
	// subscribe; the lookups are independent, so run them together.
	fmt.Println("Downloading symbols...")
	streamers := make([]tasty.StreamerSymbol, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range positions {
		g.Go(func() error {
			sym, err := session.StreamerSymbol(gctx, p.InstrumentType, p.Symbol)
			if err != nil {
				return err
			}
			streamers[i] = sym
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Println("Setting up records...")
	for i, p := range positions {
		portfolio.AddPosition(streamers[i], p)
	}

	fmt.Print("Setting up quote streaming...")
	quoteStream, err := session.OpenQuoteStreamer(ctx)
	if err != nil {
		return err
	}
	defer quoteStream.Close()
	if err := quoteStream.Subscribe(portfolio.Symbols()); err != nil {
		return err
	}

	return tui.Run(tui.New(portfolio, quoteStream.Events(), accountStream.Events(), log))
}
