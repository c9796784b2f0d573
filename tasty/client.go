package tasty

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the production REST endpoint.
const DefaultBaseURL = "https://api.tastyworks.com"

// DefaultStreamerURL is the production account-streamer websocket endpoint.
const DefaultStreamerURL = "wss://streamer.tastyworks.com"

const userAgent = "tastywatch/0.1"

// Client talks to the brokerage REST API. The zero value is not usable; use
// NewClient and override fields before the first call if needed.
type Client struct {
	BaseURL     string
	StreamerURL string
	HTTP        *http.Client
	Logger      *slog.Logger
}

// NewClient returns a client against the production endpoints.
func NewClient() *Client {
	return &Client{
		BaseURL:     DefaultBaseURL,
		StreamerURL: DefaultStreamerURL,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
		Logger:      slog.Default(),
	}
}

// Session is an authenticated session. All account data flows through it.
type Session struct {
	client *Client
	token  string
}

// Token returns the session token. The account streamer authenticates with
// it.
func (s *Session) Token() string { return s.token }

// Login opens a session with the given credentials.
func (c *Client) Login(ctx context.Context, login, password string) (*Session, error) {
	body := struct {
		Login      string `json:"login"`
		Password   string `json:"password"`
		RememberMe bool   `json:"remember-me"`
	}{Login: login, Password: password}
	var out struct {
		SessionToken string `json:"session-token"`
	}
	if err := c.do(ctx, http.MethodPost, "/sessions", "", body, &out); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return &Session{client: c, token: out.SessionToken}, nil
}

// Accounts lists the customer's accounts.
func (s *Session) Accounts(ctx context.Context) ([]Account, error) {
	var page itemsPage[struct {
		Account Account `json:"account"`
	}]
	if err := s.client.do(ctx, http.MethodGet, "/customers/me/accounts", s.token, nil, &page); err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(page.Items))
	for _, it := range page.Items {
		accounts = append(accounts, it.Account)
	}
	return accounts, nil
}

// Positions lists the open positions of one account.
func (s *Session) Positions(ctx context.Context, accountNumber string) ([]Position, error) {
	var page itemsPage[Position]
	path := "/accounts/" + url.PathEscape(accountNumber) + "/positions"
	if err := s.client.do(ctx, http.MethodGet, path, s.token, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Balances fetches the current balance snapshot of one account.
func (s *Session) Balances(ctx context.Context, accountNumber string) (Balance, error) {
	var b Balance
	path := "/accounts/" + url.PathEscape(accountNumber) + "/balances"
	if err := s.client.do(ctx, http.MethodGet, path, s.token, nil, &b); err != nil {
		return Balance{}, err
	}
	return b, nil
}

// StreamerSymbol translates a brokerage symbol into the feed's alphabet by
// looking up the instrument.
func (s *Session) StreamerSymbol(ctx context.Context, itype InstrumentType, symbol Symbol) (StreamerSymbol, error) {
	path, err := instrumentPath(itype, symbol)
	if err != nil {
		return "", err
	}
	var out struct {
		StreamerSymbol StreamerSymbol `json:"streamer-symbol"`
	}
	if err := s.client.do(ctx, http.MethodGet, path, s.token, nil, &out); err != nil {
		return "", err
	}
	if out.StreamerSymbol == "" {
		return "", fmt.Errorf("instrument %q has no streamer symbol", symbol)
	}
	return out.StreamerSymbol, nil
}

func instrumentPath(itype InstrumentType, symbol Symbol) (string, error) {
	var root string
	switch itype {
	case InstrumentEquity:
		root = "equities"
	case InstrumentEquityOption:
		root = "equity-options"
	case InstrumentFuture:
		root = "futures"
	case InstrumentFutureOption:
		root = "future-options"
	case InstrumentCryptocurrency:
		root = "cryptocurrencies"
	default:
		return "", fmt.Errorf("unknown instrument type %q", itype)
	}
	return "/instruments/" + root + "/" + url.PathEscape(string(symbol)), nil
}

// QuoteToken is the short-lived credential for the market-data feed.
type QuoteToken struct {
	Token     string `json:"token"`
	DXLinkURL string `json:"dxlink-url"`
	Level     string `json:"level"`
}

// QuoteToken fetches the market-data credential of the session.
func (s *Session) QuoteToken(ctx context.Context) (QuoteToken, error) {
	var t QuoteToken
	if err := s.client.do(ctx, http.MethodGet, "/api-quote-tokens", s.token, nil, &t); err != nil {
		return QuoteToken{}, err
	}
	return t, nil
}

// itemsPage is the list envelope the API wraps collections in.
type itemsPage[T any] struct {
	Items []T `json:"items"`
}

// do performs one API call. Successful responses carry the payload under a
// "data" key; out, when non-nil, must be a pointer and receives that payload.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("cannot encode %s %q request: %w", method, path, err)
		}
		payload = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, payload)
	if err != nil {
		return fmt.Errorf("cannot create %s %q request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("cannot %s %q: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	env := struct {
		Data any `json:"data"`
	}{out}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("cannot parse response of %s %q: %w", method, path, err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// apiError turns a non-2xx response into an error, surfacing the API's own
// message when the body carries one.
func apiError(method, path string, resp *http.Response) error {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Error.Message != "" {
		return fmt.Errorf("%s %q returned %s: %s", method, path, resp.Status, body.Error.Message)
	}
	return fmt.Errorf("%s %q returned %s", method, path, resp.Status)
}
