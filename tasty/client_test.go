package tasty

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient()
	c.BaseURL = srv.URL
	c.Logger = slog.New(slog.DiscardHandler)
	return c
}

func TestLogin(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sessions" {
			t.Errorf("got %s %s, want POST /sessions", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Login    string `json:"login"`
			Password string `json:"password"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("cannot parse login body: %v", err)
		}
		if req.Login != "alice" || req.Password != "s3cret" {
			t.Errorf("got credentials %q/%q, want alice/s3cret", req.Login, req.Password)
		}
		w.Write([]byte(`{"data":{"session-token":"tok-123"}}`))
	}))

	s, err := c.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.Token() != "tok-123" {
		t.Errorf("got token %q, want tok-123", s.Token())
	}
}

func TestLoginRejected(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"invalid_credentials","message":"invalid login or password"}}`))
	}))

	_, err := c.Login(context.Background(), "alice", "wrong")
	if err == nil {
		t.Fatal("Login succeeded, want error")
	}
	if !strings.Contains(err.Error(), "invalid login or password") {
		t.Errorf("error %q does not surface the API message", err)
	}
}

func TestAccounts(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers/me/accounts" {
			t.Errorf("got path %s, want /customers/me/accounts", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "tok" {
			t.Errorf("got Authorization %q, want tok", got)
		}
		w.Write([]byte(`{"data":{"items":[
			{"account":{"account-number":"5WT0001","nickname":"main"},"authority-level":"owner"},
			{"account":{"account-number":"5WT0002"},"authority-level":"owner"}
		]}}`))
	}))

	s := &Session{client: c, token: "tok"}
	accounts, err := s.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accounts))
	}
	if accounts[0].Number() != "5WT0001" || accounts[1].Number() != "5WT0002" {
		t.Errorf("got %q and %q, want 5WT0001 and 5WT0002", accounts[0].Number(), accounts[1].Number())
	}
}

func TestPositionsDecodeExactly(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/5WT0001/positions" {
			t.Errorf("got path %s, want /accounts/5WT0001/positions", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"items":[{
			"symbol":"SPY   240621P00400000",
			"underlying-symbol":"SPY",
			"instrument-type":"Equity Option",
			"average-open-price":"4.50",
			"close-price":"2.50",
			"quantity":"2",
			"multiplier":"100",
			"quantity-direction":"Short"
		}]}}`))
	}))

	s := &Session{client: c, token: "tok"}
	positions, err := s.Positions(context.Background(), "5WT0001")
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1", len(positions))
	}
	p := positions[0]
	if p.Symbol != "SPY   240621P00400000" || p.UnderlyingSymbol != "SPY" {
		t.Errorf("got symbols %q under %q", p.Symbol, p.UnderlyingSymbol)
	}
	if p.InstrumentType != InstrumentEquityOption || p.QuantityDirection != Short {
		t.Errorf("got %q %q, want Equity Option Short", p.InstrumentType, p.QuantityDirection)
	}
	for _, tc := range []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"average-open-price", p.AverageOpenPrice, "4.50"},
		{"close-price", p.ClosePrice, "2.50"},
		{"quantity", p.Quantity, "2"},
		{"multiplier", p.Multiplier, "100"},
	} {
		if want := decimal.RequireFromString(tc.want); !tc.got.Equal(want) {
			t.Errorf("%s = %s, want %s", tc.name, tc.got, tc.want)
		}
	}
}

func TestBalances(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/5WT0002/balances" {
			t.Errorf("got path %s, want /accounts/5WT0002/balances", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"account-number":"5WT0002","cash-balance":"1200.00","net-liquidating-value":"5000.00"}}`))
	}))

	s := &Session{client: c, token: "tok"}
	b, err := s.Balances(context.Background(), "5WT0002")
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if b.AccountNumber != "5WT0002" {
		t.Errorf("got account %q, want 5WT0002", b.AccountNumber)
	}
	if want := decimal.RequireFromString("1200.00"); !b.CashBalance.Equal(want) {
		t.Errorf("cash-balance = %s, want 1200.00", b.CashBalance)
	}
}

func TestStreamerSymbolEscapesPath(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// r.URL.Path arrives decoded; the raw request line must carry the
		// escaped form or the route would split on the spaces.
		if r.URL.Path != "/instruments/equity-options/SPY   240621P00400000" {
			t.Errorf("got path %q", r.URL.Path)
		}
		if strings.Contains(r.RequestURI, " ") {
			t.Errorf("request URI %q contains unescaped spaces", r.RequestURI)
		}
		w.Write([]byte(`{"data":{"symbol":"SPY   240621P00400000","streamer-symbol":".SPY240621P400"}}`))
	}))

	s := &Session{client: c, token: "tok"}
	sym, err := s.StreamerSymbol(context.Background(), InstrumentEquityOption, "SPY   240621P00400000")
	if err != nil {
		t.Fatalf("StreamerSymbol: %v", err)
	}
	if sym != ".SPY240621P400" {
		t.Errorf("got %q, want .SPY240621P400", sym)
	}
}

func TestStreamerSymbolUnknownType(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an unknown instrument type")
	}))

	s := &Session{client: c, token: "tok"}
	if _, err := s.StreamerSymbol(context.Background(), InstrumentType("Bond"), "X"); err == nil {
		t.Fatal("StreamerSymbol succeeded, want error")
	}
}

func TestQuoteToken(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api-quote-tokens" {
			t.Errorf("got path %s, want /api-quote-tokens", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"token":"qt-1","dxlink-url":"wss://feed.example/dxlink","level":"api"}}`))
	}))

	s := &Session{client: c, token: "tok"}
	qt, err := s.QuoteToken(context.Background())
	if err != nil {
		t.Fatalf("QuoteToken: %v", err)
	}
	if qt.Token != "qt-1" || qt.DXLinkURL != "wss://feed.example/dxlink" {
		t.Errorf("got %+v", qt)
	}
}
