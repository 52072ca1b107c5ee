package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"move-quote-be/internal/pkg/logger"
	"move-quote-be/pkg/intake/options"
	"move-quote-be/pkg/intake/protocol"
	"move-quote-be/pkg/intake/session"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 256
	pushBuffer     = 16
)

// ErrConnectionClosed is returned by Emit once the connection is gone.
var ErrConnectionClosed = errors.New("websocket connection closed")

// Conn is the part of a websocket connection the pumps use.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one intake connection. Outbound frames go through Send and are
// written by a single writer goroutine; turn keeps hub pushes from landing
// in the middle of a turn's event sequence.
type Client struct {
	Hub  *Hub
	Conn Conn

	// Buffered channel of outbound frames.
	Send chan []byte

	push    chan []byte
	done    chan struct{}
	closeMu sync.Once

	turn      sync.Mutex
	debouncer options.Debouncer

	mu      sync.RWMutex
	session *session.Session

	logger logger.ILogger
}

func NewClient(hub *Hub, conn Conn, log logger.ILogger) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		push:   make(chan []byte, pushBuffer),
		done:   make(chan struct{}),
		logger: log,
	}
}

func (c *Client) Session() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Token is the token of the bound session, "" before the first bind.
func (c *Client) Token() string {
	if s := c.Session(); s != nil {
		return s.Token
	}
	return ""
}

func (c *Client) bind(s *session.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// Emit encodes ev and queues it for the writer. Metadata runs through the
// quick-option debouncer first: an option set equal to the last one sent is
// left out. Emit is only called with the turn lock held.
func (c *Client) Emit(ctx context.Context, ev protocol.Outbound) error {
	var sentOptions *[]string
	switch e := ev.(type) {
	case protocol.Metadata:
		if e.QuickOptions != nil {
			if c.debouncer.Changed(*e.QuickOptions) {
				sentOptions = e.QuickOptions
			} else {
				e.QuickOptions = nil
				e.MultiSelect = false
			}
		}
		ev = e
	case protocol.SessionReset:
		c.debouncer.Forget()
	}

	data, err := protocol.Encode(ev)
	if err != nil {
		return err
	}
	if err := c.enqueue(ctx, data); err != nil {
		return err
	}
	if sentOptions != nil {
		c.debouncer.MarkSent(*sentOptions)
	}
	return nil
}

func (c *Client) enqueue(ctx context.Context, data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.Send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver queues a frame pushed by the hub. It never blocks; a client whose
// push buffer is full drops the frame.
func (c *Client) Deliver(data []byte) bool {
	select {
	case <-c.done:
		return false
	case c.push <- data:
		return true
	default:
		c.logger.Warn("WS", "Push buffer full, dropping message", map[string]interface{}{"session_token": c.Token()})
		return false
	}
}

// pushPump forwards hub pushes between turns.
func (c *Client) pushPump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.push:
			c.turn.Lock()
			err := c.enqueue(context.Background(), data)
			c.turn.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// close stops the writer and the push pump. Safe to call more than once.
func (c *Client) close() {
	c.closeMu.Do(func() {
		close(c.done)
	})
}

// readPump reads frames and hands each one to handle, in order, under the
// turn lock. It returns when the connection fails.
func (c *Client) readPump(ctx context.Context, handle func(ctx context.Context, raw []byte) error) {
	defer func() {
		c.close()
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WS", "Connection closed unexpectedly", map[string]interface{}{"session_token": c.Token(), "error": err.Error()})
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		c.turn.Lock()
		err = handle(ctx, raw)
		c.turn.Unlock()
		if err != nil {
			c.logger.Warn("WS", "Dropping connection", map[string]interface{}{"session_token": c.Token(), "error": err.Error()})
			return
		}
	}
}

// writePump writes queued frames, one websocket message per event, and
// keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.drain()
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// drain flushes frames queued before the connection was closed.
func (c *Client) drain() {
	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}
