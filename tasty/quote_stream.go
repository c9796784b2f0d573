package tasty

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// dxLink channel numbers. Channel 0 carries the protocol handshake and
// keepalives; the feed itself runs on its own channel.
const (
	setupChannel = 0
	feedChannel  = 1
)

const (
	dxVersion          = "0.1-tastywatch"
	keepaliveInterval  = 30 * time.Second
	keepaliveTimeout   = 60
	handshakeTimeout   = 15 * time.Second
	feedAggregationSec = 0.1
)

// QuoteStreamer receives market data over a dxLink websocket. Every
// subscribed instrument delivers Quote and Greeks events on Events.
type QuoteStreamer struct {
	log *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	events    chan MarketEvent
	dropped   atomic.Int64
	done      chan struct{}
	closeOnce sync.Once

	authorized     chan struct{}
	authorizedOnce sync.Once
	opened         chan struct{}
	openedOnce     sync.Once
}

// OpenQuoteStreamer fetches a feed credential, connects to the feed and runs
// the dxLink handshake up to an open feed channel. Callers must Close the
// streamer when done.
func (s *Session) OpenQuoteStreamer(ctx context.Context) (*QuoteStreamer, error) {
	token, err := s.QuoteToken(ctx)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, token.DXLinkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to quote streamer %q: %w", token.DXLinkURL, err)
	}
	q := &QuoteStreamer{
		log:        s.client.logger().With("stream", "quotes"),
		conn:       conn,
		events:     make(chan MarketEvent, eventBuffer),
		done:       make(chan struct{}),
		authorized: make(chan struct{}),
		opened:     make(chan struct{}),
	}
	go q.readLoop()
	if err := q.handshake(ctx, token.Token); err != nil {
		q.Close()
		return nil, err
	}
	go q.keepaliveLoop()
	return q, nil
}

// Events delivers market updates. The channel is closed when the connection
// ends.
func (q *QuoteStreamer) Events() <-chan MarketEvent { return q.events }

// Subscribe adds Quote and Greeks subscriptions for the given symbols.
func (q *QuoteStreamer) Subscribe(symbols []StreamerSymbol) error {
	add := make([]subscriptionEntry, 0, 2*len(symbols))
	for _, sym := range symbols {
		add = append(add,
			subscriptionEntry{Type: "Quote", Symbol: string(sym)},
			subscriptionEntry{Type: "Greeks", Symbol: string(sym)},
		)
	}
	return q.send(map[string]any{
		"type":    "FEED_SUBSCRIPTION",
		"channel": feedChannel,
		"add":     add,
	})
}

// Close tears down the connection. Safe to call more than once.
func (q *QuoteStreamer) Close() error {
	var err error
	q.closeOnce.Do(func() {
		close(q.done)
		err = q.conn.Close()
	})
	return err
}

type subscriptionEntry struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// handshake walks the connection to a usable feed: SETUP, AUTH, then a FEED
// channel configured to send full event objects.
func (q *QuoteStreamer) handshake(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	if err := q.send(map[string]any{
		"type":                   "SETUP",
		"channel":                setupChannel,
		"version":                dxVersion,
		"keepaliveTimeout":       keepaliveTimeout,
		"acceptKeepaliveTimeout": keepaliveTimeout,
	}); err != nil {
		return err
	}
	if err := q.send(map[string]any{
		"type":    "AUTH",
		"channel": setupChannel,
		"token":   token,
	}); err != nil {
		return err
	}
	if err := q.await(ctx, q.authorized, "authorization"); err != nil {
		return err
	}
	if err := q.send(map[string]any{
		"type":       "CHANNEL_REQUEST",
		"channel":    feedChannel,
		"service":    "FEED",
		"parameters": map[string]any{"contract": "AUTO"},
	}); err != nil {
		return err
	}
	if err := q.await(ctx, q.opened, "feed channel"); err != nil {
		return err
	}
	return q.send(map[string]any{
		"type":                    "FEED_SETUP",
		"channel":                 feedChannel,
		"acceptAggregationPeriod": feedAggregationSec,
		"acceptDataFormat":        "FULL",
		"acceptEventFields": map[string][]string{
			"Quote":  {"eventType", "eventSymbol", "bidPrice", "askPrice"},
			"Greeks": {"eventType", "eventSymbol", "theta", "delta"},
		},
	})
}

func (q *QuoteStreamer) await(ctx context.Context, ch <-chan struct{}, what string) error {
	select {
	case <-ch:
		return nil
	case <-q.done:
		return fmt.Errorf("quote streamer closed while waiting for %s", what)
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s: %w", what, ctx.Err())
	}
}

func (q *QuoteStreamer) send(v any) error {
	q.writeMu.Lock()
	defer q.writeMu.Unlock()
	if err := q.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("quote streamer write failed: %w", err)
	}
	return nil
}

func (q *QuoteStreamer) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			if err := q.send(map[string]any{"type": "KEEPALIVE", "channel": setupChannel}); err != nil {
				q.log.Warn("keepalive failed", "err", err)
				return
			}
		}
	}
}

// dxFrame is the superset of inbound frame fields the streamer looks at.
type dxFrame struct {
	Type    string          `json:"type"`
	Channel int             `json:"channel"`
	State   string          `json:"state"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (q *QuoteStreamer) readLoop() {
	defer close(q.events)
	for {
		_, raw, err := q.conn.ReadMessage()
		if err != nil {
			select {
			case <-q.done:
			default:
				q.log.Error("quote streamer read failed", "err", err)
			}
			return
		}
		q.handleMessage(raw)
	}
}

func (q *QuoteStreamer) handleMessage(raw []byte) {
	var frame dxFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		q.log.Debug("dropping unparseable frame", "err", err)
		return
	}
	switch frame.Type {
	case "AUTH_STATE":
		if frame.State == "AUTHORIZED" {
			q.authorizedOnce.Do(func() { close(q.authorized) })
		}
	case "CHANNEL_OPENED":
		if frame.Channel == feedChannel {
			q.openedOnce.Do(func() { close(q.opened) })
		}
	case "FEED_DATA":
		if frame.Channel == feedChannel {
			q.handleFeedData(frame.Data)
		}
	case "KEEPALIVE":
		// Inbound keepalives need no reply beyond our own loop.
	case "ERROR":
		q.log.Error("feed error", "error", frame.Error, "message", frame.Message)
	default:
		q.log.Debug("ignoring frame", "type", frame.Type)
	}
}

// feedEvent is one FULL-format event object. Doubles arrive as numbers or as
// the strings "NaN", "Infinity" and "-Infinity".
type feedEvent struct {
	EventType   string    `json:"eventType"`
	EventSymbol string    `json:"eventSymbol"`
	BidPrice    feedFloat `json:"bidPrice"`
	AskPrice    feedFloat `json:"askPrice"`
	Theta       feedFloat `json:"theta"`
	Delta       feedFloat `json:"delta"`
}

func (q *QuoteStreamer) handleFeedData(data json.RawMessage) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		q.log.Debug("dropping malformed feed data", "err", err)
		return
	}
	for _, item := range items {
		var ev feedEvent
		if err := json.Unmarshal(item, &ev); err != nil {
			q.log.Debug("dropping malformed feed event", "err", err)
			continue
		}
		switch ev.EventType {
		case "Quote":
			q.deliver(MarketEvent{
				Symbol: StreamerSymbol(ev.EventSymbol),
				Data:   &Quote{BidPrice: float64(ev.BidPrice), AskPrice: float64(ev.AskPrice)},
			})
		case "Greeks":
			q.deliver(MarketEvent{
				Symbol: StreamerSymbol(ev.EventSymbol),
				Data:   &Greeks{Theta: float64(ev.Theta), Delta: float64(ev.Delta)},
			})
		default:
			q.log.Debug("ignoring feed event", "type", ev.EventType)
		}
	}
}

// deliver hands an event to the consumer without blocking the read loop. The
// data is latest-wins, so an update dropped on a full buffer is superseded by
// the next tick anyway.
func (q *QuoteStreamer) deliver(ev MarketEvent) {
	select {
	case q.events <- ev:
	default:
		q.log.Debug("event buffer full, dropping", "symbol", ev.Symbol, "drops", q.dropped.Add(1))
	}
}

// feedFloat tolerates dxLink's string encoding of non-finite doubles.
type feedFloat float64

func (f *feedFloat) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*f = feedFloat(math.NaN())
		case "Infinity":
			*f = feedFloat(math.Inf(1))
		case "-Infinity":
			*f = feedFloat(math.Inf(-1))
		default:
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid feed double %q", s)
			}
			*f = feedFloat(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = feedFloat(v)
	return nil
}
