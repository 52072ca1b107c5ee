package handler

import (
	"context"

	"move-quote-be/internal/pkg/logger"
	internalWS "move-quote-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IntakeHandler struct {
	hub        *internalWS.Hub
	dispatcher *internalWS.Dispatcher
	baseCtx    context.Context
	logger     logger.ILogger
}

// NewIntakeHandler serves the chat socket. Connections inherit baseCtx, so
// cancelling it ends in-flight turns on shutdown.
func NewIntakeHandler(baseCtx context.Context, hub *internalWS.Hub, dispatcher *internalWS.Dispatcher, log logger.ILogger) *IntakeHandler {
	return &IntakeHandler{
		hub:        hub,
		dispatcher: dispatcher,
		baseCtx:    baseCtx,
		logger:     log,
	}
}

// ServeWs upgrades the request. The session token is optional: without a
// valid one the connection starts a new session.
func (h *IntakeHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("session_token")

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("WS", "Starting intake connection", map[string]interface{}{"resume": token != ""})
		internalWS.ServeWs(h.baseCtx, h.hub, h.dispatcher, conn, token, h.logger)
		h.logger.Info("WS", "Intake connection ended", nil)
	})(c)
}

func (h *IntakeHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/chat", h.ServeWs)
}
