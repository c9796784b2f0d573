package tui

import (
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/etnz/tastywatch"
	"github.com/etnz/tastywatch/tasty"
)

// Model drives the dashboard: one portfolio, a cursor over its rows, and the
// two event streams feeding it. Every stream event mutates the portfolio and
// the next View paints the result; there is no other repaint trigger.
type Model struct {
	portfolio *tastywatch.Portfolio
	nav       *tastywatch.Navigation
	market    <-chan tasty.MarketEvent
	account   <-chan tasty.AccountEvent
	log       *slog.Logger

	width  int
	height int
	ready  bool
	offset int
}

// New returns a model over an already bootstrapped portfolio. The cursor
// starts with nothing selected.
func New(p *tastywatch.Portfolio, market <-chan tasty.MarketEvent, account <-chan tasty.AccountEvent, log *slog.Logger) Model {
	return Model{
		portfolio: p,
		nav:       tastywatch.NewNavigation(p),
		market:    market,
		account:   account,
		log:       log,
	}
}

type marketMsg tasty.MarketEvent

type accountMsg tasty.AccountEvent

// marketClosedMsg and accountClosedMsg report a stream that went away. The
// dashboard keeps running on whatever still flows; only the keyboard quits.
type marketClosedMsg struct{}

type accountClosedMsg struct{}

func waitMarket(ch <-chan tasty.MarketEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return marketClosedMsg{}
		}
		return marketMsg(ev)
	}
}

func waitAccount(ch <-chan tasty.AccountEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return accountClosedMsg{}
		}
		return accountMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitMarket(m.market), waitAccount(m.account))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Down):
			m.nav.Next()
			m.ensureVisible()
		case key.Matches(msg, keys.Up):
			m.nav.Previous()
			m.ensureVisible()
		case key.Matches(msg, keys.Toggle):
			m.nav.ToggleGroup(m.portfolio)
			m.ensureVisible()
		}

	case marketMsg:
		switch data := msg.Data.(type) {
		case *tasty.Quote:
			m.portfolio.ApplyQuote(msg.Symbol, data.BidPrice, data.AskPrice)
		case *tasty.Greeks:
			m.portfolio.ApplyGreeks(msg.Symbol, data.Theta, data.Delta)
		}
		return m, waitMarket(m.market)

	case accountMsg:
		if msg.Balance != nil {
			m.portfolio.ApplyBalance(msg.Balance.AccountNumber, msg.Balance.CashBalance)
		}
		return m, waitAccount(m.account)

	case marketClosedMsg:
		m.log.Warn("quote stream closed")

	case accountClosedMsg:
		m.log.Warn("account stream closed")

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.ensureVisible()
	}
	return m, nil
}

// ensureVisible scrolls the table so the selected row stays inside the body.
func (m *Model) ensureVisible() {
	selected, ok := m.nav.Selected()
	if !ok {
		m.offset = 0
		return
	}
	visible := m.bodyHeight()
	if visible < 1 {
		return
	}
	if selected < m.offset {
		m.offset = selected
	} else if selected >= m.offset+visible {
		m.offset = selected - visible + 1
	}
}

// bodyHeight is the row count the table body can show: the terminal minus
// the outer margin, the border and the header line.
func (m Model) bodyHeight() int {
	return m.height - 2*outerMargin - 2 - 1
}

// Run paints the dashboard on the alternate screen until the user quits.
// The terminal is restored on the way out, whatever the exit path.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
