package websocket

import (
	"context"

	"move-quote-be/internal/pkg/logger"
	"move-quote-be/pkg/intake/protocol"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

type clusterMessage struct {
	Origin  string `json:"origin"`
	Target  string `json:"target"`
	Message []byte `json:"message"`
}

type delivery struct {
	token string
	data  []byte
}

// Hub tracks the live connections of each session token. Pushes for a token
// reach every local connection of it and, through Redis, those held by
// other instances.
type Hub struct {
	// Connections by session token (several tabs may share one session).
	clients map[string]map[*Client]struct{}
	// Token each client is registered under.
	tokens map[*Client]string

	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	stopped    chan struct{}

	rdb    *redis.Client
	id     string
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		tokens:     make(map[*Client]string),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 64),
		stopped:    make(chan struct{}),
		rdb:        rdb,
		id:         uuid.NewString(),
		logger:     log,
	}
}

// Run owns the connection table until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.remove(client)
			token := client.Token()
			if h.clients[token] == nil {
				h.clients[token] = make(map[*Client]struct{})
			}
			h.clients[token][client] = struct{}{}
			h.tokens[client] = token
			h.logger.Debug("WS", "Client registered", map[string]interface{}{"session_token": token, "connections": len(h.clients[token])})

		case client := <-h.unregister:
			h.remove(client)

		case d := <-h.deliver:
			for client := range h.clients[d.token] {
				client.Deliver(d.data)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	token, ok := h.tokens[client]
	if !ok {
		return
	}
	delete(h.tokens, client)
	delete(h.clients[token], client)
	if len(h.clients[token]) == 0 {
		delete(h.clients, token)
	}
}

// Register files the client under its current session token. Registering
// again after the session changed moves it.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Send pushes an encoded frame to every connection of token, here and on
// the other instances.
func (h *Hub) Send(token string, data []byte) {
	select {
	case h.deliver <- delivery{token: token, data: data}:
	case <-h.stopped:
		return
	}

	if h.rdb != nil {
		payload, err := sonic.Marshal(clusterMessage{Origin: h.id, Target: token, Message: data})
		if err != nil {
			return
		}
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("WS", "Failed to publish cluster event", map[string]interface{}{"error": err.Error()})
		}
	}
}

// NotifyQuoteStatus pushes a quote_status event to the session's clients.
func (h *Hub) NotifyQuoteStatus(token string, quoteID uuid.UUID, status string) {
	data, err := protocol.Encode(protocol.QuoteStatus{QuoteID: quoteID.String(), Status: status})
	if err != nil {
		h.logger.Error("WS", "Failed to encode quote status", map[string]interface{}{"error": err.Error()})
		return
	}
	h.Send(token, data)
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := sonic.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("WS", "Cluster event parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			// Our own publications were already delivered locally.
			if payload.Origin == h.id {
				continue
			}
			select {
			case h.deliver <- delivery{token: payload.Target, data: payload.Message}:
			case <-ctx.Done():
				return
			}
		}
	}
}
