package protocol

import (
	"bytes"
	"fmt"

	"move-quote-be/pkg/intake/intakeerr"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Inbound is a decoded client message: its type and the typed payload.
type Inbound struct {
	Type    string
	Payload any
}

func newPayload(typ string) (any, bool) {
	switch typ {
	case TypeMessage:
		return &Message{}, true
	case TypeQuickOption:
		return &QuickOption{}, true
	case TypeImageUploaded:
		return &ImageUploaded{}, true
	case TypeAddressSelected:
		return &AddressSelected{}, true
	case TypeAddressConfirmed:
		return &AddressConfirmed{}, true
	case TypeItemsConfirmed:
		return &ItemsConfirmed{}, true
	case TypeSubmitQuote:
		return &SubmitQuote{}, true
	case TypeResetSession:
		return &ResetSession{}, true
	case TypePing:
		return &Ping{}, true
	}
	return nil, false
}

// Decode parses and validates one client frame. Every failure is a
// MalformedMessage error.
func Decode(raw []byte) (Inbound, error) {
	var env Envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return Inbound{}, intakeerr.Malformed(fmt.Errorf("invalid json: %w", err))
	}
	payload, ok := newPayload(env.Type)
	if !ok {
		return Inbound{}, intakeerr.Malformed(fmt.Errorf("unknown message type %q", env.Type))
	}
	if err := sonic.Unmarshal(raw, payload); err != nil {
		return Inbound{}, intakeerr.Malformed(fmt.Errorf("invalid %s payload: %w", env.Type, err))
	}
	if err := validate.Struct(payload); err != nil {
		return Inbound{}, intakeerr.Malformed(fmt.Errorf("invalid %s payload: %w", env.Type, err))
	}
	return Inbound{Type: env.Type, Payload: payload}, nil
}

// Encode serializes an event and stamps its "type" discriminator first.
func Encode(ev Outbound) ([]byte, error) {
	body, err := sonic.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ev.EventType(), err)
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("failed to encode %s: not an object", ev.EventType())
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(ev.EventType()) + 12)
	buf.WriteString(`{"type":`)
	typ, _ := sonic.Marshal(ev.EventType())
	buf.Write(typ)
	if rest := bytes.TrimSpace(body[1:]); len(rest) > 1 {
		buf.WriteByte(',')
		buf.Write(rest)
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}
