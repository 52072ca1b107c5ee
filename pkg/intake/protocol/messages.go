// Package protocol defines the JSON messages exchanged over the intake
// WebSocket connection.
package protocol

import (
	"context"

	"move-quote-be/pkg/intake/address"
	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/items"
	"move-quote-be/pkg/intake/phase"
	"move-quote-be/pkg/intake/session"
)

// Client to server.
const (
	TypeMessage          = "message"
	TypeQuickOption      = "quick_option"
	TypeImageUploaded    = "image_uploaded"
	TypeAddressSelected  = "address_selected"
	TypeAddressConfirmed = "address_confirmed"
	TypeItemsConfirmed   = "items_confirmed"
	TypeSubmitQuote      = "submit_quote"
	TypeResetSession     = "reset_session"
	TypePing             = "ping"
)

// Server to client.
const (
	TypeSession         = "session"
	TypeTextDelta       = "text_delta"
	TypeTextDone        = "text_done"
	TypeMetadata        = "metadata"
	TypeMessageHistory  = "message_history"
	TypeSessionReset    = "session_reset"
	TypeItemsRecognized = "items_recognized"
	TypeQuoteSubmitted  = "quote_submitted"
	TypeQuoteError      = "quote_error"
	TypeQuoteStatus     = "quote_status"
	TypeItemsInvalid    = "items_validation_error"
	TypeError           = "error"
	TypePong            = "pong"
)

type Envelope struct {
	Type string `json:"type"`
}

// Inbound payloads.

type Message struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type QuickOption struct {
	Content string `json:"content" validate:"required,max=200"`
}

type ImageUploaded struct {
	ImageID string       `json:"image_id" validate:"required"`
	Items   []items.Item `json:"items" validate:"dive"`
}

// AddressRef points at a candidate either by index or by its formatted text.
type AddressRef struct {
	Index            *int   `json:"index,omitempty"`
	FormattedAddress string `json:"formatted_address,omitempty"`
}

type AddressSelected struct {
	AddressType address.Role `json:"address_type" validate:"required,oneof=from to"`
	Index       *int         `json:"index,omitempty" validate:"omitempty,min=0"`
	Address     *AddressRef  `json:"address,omitempty"`
	RejectAll   bool         `json:"reject_all,omitempty"`
}

type AddressConfirmed struct {
	AddressType address.Role `json:"address_type" validate:"required,oneof=from to"`
	Confirmed   bool         `json:"confirmed"`
}

type ItemsConfirmed struct {
	Items []items.Item `json:"items" validate:"dive"`
}

type SubmitQuote struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type ResetSession struct{}

type Ping struct{}

// Outbound events. The codec stamps the "type" discriminator, so the
// structs only carry their payload.

type Outbound interface {
	EventType() string
}

// Emitter delivers outbound events of one connection in order.
type Emitter interface {
	Emit(ctx context.Context, ev Outbound) error
}

type SessionEvent struct {
	SessionToken string      `json:"session_token"`
	CurrentPhase phase.Phase `json:"current_phase"`
	Resumed      bool        `json:"resumed"`
}

type TextDelta struct {
	Content string `json:"content"`
}

type TextDone struct{}

// Metadata carries the post-turn projection. QuickOptions is a pointer so
// that "unchanged, not sent" (nil) differs from "no options" (empty).
type Metadata struct {
	CurrentPhase *phase.Phase         `json:"current_phase,omitempty"`
	FieldsStatus field.Snapshot       `json:"fields_status,omitempty"`
	QuickOptions *[]string            `json:"quick_options,omitempty"`
	MultiSelect  bool                 `json:"multi_select,omitempty"`
	UIComponent  *session.UIComponent `json:"ui_component,omitempty"`
	Completion   *field.Completion    `json:"completion,omitempty"`
}

type HistoryMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type MessageHistory struct {
	Messages []HistoryMessage `json:"messages"`
}

type SessionReset struct {
	SessionToken string         `json:"session_token"`
	FieldsStatus field.Snapshot `json:"fields_status"`
}

type ItemsRecognized struct {
	ImageID      string       `json:"image_id,omitempty"`
	Items        []items.Item `json:"items"`
	CurrentItems []items.Item `json:"current_items"`
}

type ItemsConfirmedEvent struct {
	Items      []items.Item `json:"items"`
	TotalCount int          `json:"total_count"`
}

type AddressSelectedEvent struct {
	AddressType address.Role        `json:"address_type"`
	State       address.State       `json:"state"`
	Address     *address.Candidate  `json:"address,omitempty"`
	Candidates  []address.Candidate `json:"candidates,omitempty"`
}

type AddressConfirmedEvent struct {
	AddressType address.Role       `json:"address_type"`
	Confirmed   bool               `json:"confirmed"`
	Address     *address.Candidate `json:"address,omitempty"`
}

type QuoteSubmitted struct {
	QuoteID string `json:"quote_id"`
	Message string `json:"message"`
}

type QuoteError struct {
	Code          string   `json:"code"`
	Message       string   `json:"message"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

type QuoteStatus struct {
	QuoteID string `json:"quote_id"`
	Status  string `json:"status"`
}

// ItemsValidationError rejects an items_confirmed batch without touching
// the session.
type ItemsValidationError struct {
	Errors []string `json:"errors"`
}

type ErrorEvent struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type Pong struct{}

func (SessionEvent) EventType() string          { return TypeSession }
func (TextDelta) EventType() string             { return TypeTextDelta }
func (TextDone) EventType() string              { return TypeTextDone }
func (Metadata) EventType() string              { return TypeMetadata }
func (MessageHistory) EventType() string        { return TypeMessageHistory }
func (SessionReset) EventType() string          { return TypeSessionReset }
func (ItemsRecognized) EventType() string       { return TypeItemsRecognized }
func (ItemsConfirmedEvent) EventType() string   { return TypeItemsConfirmed }
func (AddressSelectedEvent) EventType() string  { return TypeAddressSelected }
func (AddressConfirmedEvent) EventType() string { return TypeAddressConfirmed }
func (QuoteSubmitted) EventType() string        { return TypeQuoteSubmitted }
func (QuoteError) EventType() string            { return TypeQuoteError }
func (QuoteStatus) EventType() string           { return TypeQuoteStatus }
func (ItemsValidationError) EventType() string  { return TypeItemsInvalid }
func (ErrorEvent) EventType() string            { return TypeError }
func (Pong) EventType() string                  { return TypePong }
