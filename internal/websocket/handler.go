package websocket

import (
	"context"
	"errors"

	"move-quote-be/internal/pkg/logger"
	"move-quote-be/internal/service"
	"move-quote-be/pkg/intake/intakeerr"
	"move-quote-be/pkg/intake/protocol"
	"move-quote-be/pkg/intake/session"
)

type handlerFunc func(ctx context.Context, c *Client, s *session.Session, payload any) error

// Dispatcher routes decoded client messages to the intake service.
type Dispatcher struct {
	intake service.IIntakeService
	routes map[string]handlerFunc
	logger logger.ILogger
}

func NewDispatcher(intake service.IIntakeService, log logger.ILogger) *Dispatcher {
	d := &Dispatcher{intake: intake, logger: log}
	d.routes = map[string]handlerFunc{
		protocol.TypeMessage: func(ctx context.Context, c *Client, s *session.Session, p any) error {
			return d.intake.HandleMessage(ctx, c, s, p.(*protocol.Message).Content)
		},
		protocol.TypeQuickOption: func(ctx context.Context, c *Client, s *session.Session, p any) error {
			return d.intake.HandleQuickOption(ctx, c, s, p.(*protocol.QuickOption).Content)
		},
		protocol.TypeImageUploaded: func(ctx context.Context, c *Client, s *session.Session, p any) error {
			return d.intake.HandleImageUploaded(ctx, c, s, p.(*protocol.ImageUploaded))
		},
		protocol.TypeAddressSelected: func(ctx context.Context, c *Client, s *session.Session, p any) error {
			return d.intake.HandleAddressSelected(ctx, c, s, p.(*protocol.AddressSelected))
		},
		protocol.TypeAddressConfirmed: func(ctx context.Context, c *Client, s *session.Session, p any) error {
			return d.intake.HandleAddressConfirmed(ctx, c, s, p.(*protocol.AddressConfirmed))
		},
		protocol.TypeItemsConfirmed: func(ctx context.Context, c *Client, s *session.Session, p any) error {
			return d.intake.HandleItemsConfirmed(ctx, c, s, p.(*protocol.ItemsConfirmed))
		},
		protocol.TypeSubmitQuote: func(ctx context.Context, c *Client, s *session.Session, p any) error {
			return d.intake.HandleSubmitQuote(ctx, c, s, p.(*protocol.SubmitQuote))
		},
		protocol.TypeResetSession: func(ctx context.Context, c *Client, s *session.Session, _ any) error {
			return d.intake.Reset(ctx, c, s)
		},
		protocol.TypePing: func(ctx context.Context, c *Client, _ *session.Session, _ any) error {
			return c.Emit(ctx, protocol.Pong{})
		},
	}
	return d
}

// ServeWs runs one intake connection until it closes. token is the session
// token the client asked to resume, possibly empty.
func ServeWs(ctx context.Context, hub *Hub, d *Dispatcher, conn Conn, token string, log logger.ILogger) {
	c := NewClient(hub, conn, log)
	go c.writePump()
	go c.pushPump()

	if err := d.open(ctx, c, token); err != nil {
		log.Error("WS", "Failed to open session", map[string]interface{}{"error": err.Error()})
		c.close()
		conn.Close()
		return
	}
	defer hub.Unregister(c)

	c.readPump(ctx, func(ctx context.Context, raw []byte) error {
		return d.Handle(ctx, c, raw)
	})
	log.Debug("WS", "Connection finished", map[string]interface{}{"session_token": c.Token()})
}

func (d *Dispatcher) open(ctx context.Context, c *Client, token string) error {
	c.turn.Lock()
	defer c.turn.Unlock()
	return d.rebind(ctx, c, token)
}

// rebind opens (or resumes) a session for c and files c under its token.
func (d *Dispatcher) rebind(ctx context.Context, c *Client, token string) error {
	s, err := d.intake.Open(ctx, c, token)
	if s != nil {
		c.bind(s)
		c.Hub.Register(c)
	}
	return err
}

// Handle processes one inbound frame. Only failures that leave the
// connection unusable are returned; everything else becomes an error event.
func (d *Dispatcher) Handle(ctx context.Context, c *Client, raw []byte) error {
	in, err := protocol.Decode(raw)
	if err != nil {
		d.logger.Debug("WS", "Malformed message", map[string]interface{}{"error": err.Error()})
		return d.emitError(ctx, c, err)
	}

	route, ok := d.routes[in.Type]
	if !ok {
		return d.emitError(ctx, c, intakeerr.ErrMalformedMessage)
	}

	err = route(ctx, c, c.Session(), in.Payload)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, intakeerr.ErrInvalidSession):
		d.logger.Info("WS", "Session gone, issuing a new one", map[string]interface{}{"type": in.Type})
		if err := d.emitError(ctx, c, err); err != nil {
			return err
		}
		return d.rebind(ctx, c, "")
	case intakeerr.IsTyped(err):
		return d.emitError(ctx, c, err)
	}
	return err
}

func (d *Dispatcher) emitError(ctx context.Context, c *Client, err error) error {
	code, msg := intakeerr.Describe(err)
	return c.Emit(ctx, protocol.ErrorEvent{Code: string(code), Message: msg})
}
