package websocket

import (
	"context"
	"testing"
	"time"

	"move-quote-be/internal/pkg/logger"
	"move-quote-be/pkg/intake/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_NotifyQuoteStatus(t *testing.T) {
	log := logger.NewNopLogger()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, log)
	go hub.Run(ctx)

	newClient := func(token string) (*Client, *fakeConn) {
		conn := newFakeConn()
		c := NewClient(hub, conn, log)
		c.bind(&session.Session{ID: uuid.New(), Token: token})
		go c.writePump()
		go c.pushPump()
		hub.Register(c)
		return c, conn
	}

	a, connA := newClient("tok-a")
	b, connB := newClient("tok-a")
	other, connOther := newClient("tok-b")

	quoteID := uuid.New()
	hub.NotifyQuoteStatus("tok-a", quoteID, "processing")

	for _, conn := range []*fakeConn{connA, connB} {
		require.Eventually(t, func() bool {
			conn.mu.Lock()
			defer conn.mu.Unlock()
			return len(conn.out) == 1
		}, time.Second, 5*time.Millisecond)
		frame := conn.frames(t)[0]
		assert.Equal(t, "quote_status", frame["type"])
		assert.Equal(t, quoteID.String(), frame["quote_id"])
		assert.Equal(t, "processing", frame["status"])
	}

	// An unregistered client no longer receives pushes.
	hub.Unregister(b)
	hub.NotifyQuoteStatus("tok-a", quoteID, "completed")
	require.Eventually(t, func() bool {
		connA.mu.Lock()
		defer connA.mu.Unlock()
		return len(connA.out) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Len(t, connB.frames(t), 1)
	assert.Empty(t, connOther.frames(t))

	for _, c := range []*Client{a, b, other} {
		c.close()
	}
	cancel()
	<-hub.stopped
}

func TestHub_RegisterMovesClientToNewToken(t *testing.T) {
	log := logger.NewNopLogger()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, log)
	go hub.Run(ctx)

	c := NewClient(hub, newFakeConn(), log)
	c.bind(&session.Session{ID: uuid.New(), Token: "old"})
	hub.Register(c)
	c.bind(&session.Session{ID: uuid.New(), Token: "new"})
	hub.Register(c)

	// Unregister is served by the Run loop after both registrations.
	hub.Unregister(&Client{})
	cancel()
	<-hub.stopped

	assert.NotContains(t, hub.clients, "old")
	assert.Contains(t, hub.clients["new"], c)
	assert.Equal(t, "new", hub.tokens[c])
	c.close()
}
