package tasty

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// accountHeartbeatInterval is how often the streamer expects a heartbeat
// before it drops the connection.
const accountHeartbeatInterval = 30 * time.Second

// eventBuffer sizes the delivery channels of both streamers. Bursts larger
// than this are dropped rather than stalling the read loop.
const eventBuffer = 100

// AccountStreamer receives push notifications for subscribed accounts over a
// websocket. Balance snapshots are delivered on Events; everything else the
// socket carries is dropped.
type AccountStreamer struct {
	client *Client
	token  string
	log    *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	events    chan AccountEvent
	dropped   atomic.Int64
	done      chan struct{}
	closeOnce sync.Once

	idMu      sync.Mutex
	requestID int
}

// OpenAccountStreamer connects to the account streamer and starts its read
// and heartbeat loops. Callers must Close it when done.
func (s *Session) OpenAccountStreamer(ctx context.Context) (*AccountStreamer, error) {
	c := s.client
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.StreamerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to account streamer %q: %w", c.StreamerURL, err)
	}
	a := &AccountStreamer{
		client: c,
		token:  s.token,
		log:    c.logger().With("stream", "account"),
		conn:   conn,
		events: make(chan AccountEvent, eventBuffer),
		done:   make(chan struct{}),
	}
	go a.readLoop()
	go a.heartbeatLoop()
	return a, nil
}

// Events delivers balance updates. The channel is closed when the connection
// ends.
func (a *AccountStreamer) Events() <-chan AccountEvent { return a.events }

// Subscribe asks the streamer to push notifications for the given accounts.
func (a *AccountStreamer) Subscribe(accountNumbers []string) error {
	return a.send(map[string]any{
		"action":     "connect",
		"value":      accountNumbers,
		"auth-token": a.token,
		"request-id": a.nextRequestID(),
	})
}

// Close tears down the connection. Safe to call more than once.
func (a *AccountStreamer) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.done)
		err = a.conn.Close()
	})
	return err
}

func (a *AccountStreamer) send(v any) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if err := a.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("account streamer write failed: %w", err)
	}
	return nil
}

func (a *AccountStreamer) nextRequestID() int {
	a.idMu.Lock()
	defer a.idMu.Unlock()
	a.requestID++
	return a.requestID
}

func (a *AccountStreamer) heartbeatLoop() {
	ticker := time.NewTicker(accountHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			if err := a.send(map[string]any{
				"action":     "heartbeat",
				"auth-token": a.token,
				"request-id": a.nextRequestID(),
			}); err != nil {
				a.log.Warn("heartbeat failed", "err", err)
				return
			}
		}
	}
}

// accountMessage is the wire shape of streamer frames. Control replies carry
// action and status; notifications carry type and data.
type accountMessage struct {
	Action  string          `json:"action"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

func (a *AccountStreamer) readLoop() {
	defer close(a.events)
	for {
		_, raw, err := a.conn.ReadMessage()
		if err != nil {
			select {
			case <-a.done:
			default:
				a.log.Error("account streamer read failed", "err", err)
			}
			return
		}
		a.handleMessage(raw)
	}
}

func (a *AccountStreamer) handleMessage(raw []byte) {
	var msg accountMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		a.log.Debug("dropping unparseable frame", "err", err)
		return
	}
	if msg.Action != "" {
		if msg.Status == "error" {
			a.log.Error("streamer rejected request", "action", msg.Action, "message", msg.Message)
		} else {
			a.log.Debug("streamer ack", "action", msg.Action, "status", msg.Status)
		}
		return
	}
	switch msg.Type {
	case "AccountBalance":
		var b AccountBalance
		if err := json.Unmarshal(msg.Data, &b); err != nil {
			a.log.Debug("dropping malformed balance", "err", err)
			return
		}
		a.deliver(AccountEvent{Balance: &b})
	default:
		// Orders, fills and position updates share this socket.
		a.log.Debug("ignoring notification", "type", msg.Type)
	}
}

// deliver hands an event to the consumer without blocking the read loop.
// Balances are snapshots, so a drop on a full buffer loses nothing the next
// snapshot does not restate.
func (a *AccountStreamer) deliver(ev AccountEvent) {
	select {
	case a.events <- ev:
	default:
		a.log.Debug("event buffer full, dropping", "drops", a.dropped.Add(1))
	}
}
