// Package engine declares the conversation collaborator: it turns user text
// into field updates and produces the assistant's streamed reply.
package engine

import (
	"context"

	"move-quote-be/pkg/intake/address"
	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/items"
	"move-quote-be/pkg/intake/phase"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type HistoryMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turn is the read-only view of a session handed to the engine.
type Turn struct {
	Content string
	Phase   phase.Phase
	Fields  field.Snapshot
	Next    field.Key
	Items   []items.Item
	History []HistoryMessage
}

// Update is one extracted field value. Status is never baseline.
type Update struct {
	Key    field.Key    `json:"key"`
	Status field.Status `json:"status"`
	Value  any          `json:"value,omitempty"`
}

type Extraction struct {
	Updates []Update
	// Addresses carries free-text addresses to verify, per role.
	Addresses map[address.Role]string
	Items     []items.Item
	Intent    string
}

func (e Extraction) Empty() bool {
	return len(e.Updates) == 0 && len(e.Addresses) == 0 && len(e.Items) == 0
}

// ReplyRequest describes what the reply should acknowledge and ask next.
type ReplyRequest struct {
	Turn   Turn
	Fields field.Snapshot
	Next   field.Key
	// Notices are user-facing explanations of typed errors raised this turn.
	Notices []string
}

// Stream yields reply chunks in order. Recv returns io.EOF after the last
// chunk.
type Stream interface {
	Recv() (string, error)
	Close()
}

type ConversationEngine interface {
	Extract(ctx context.Context, turn Turn) (Extraction, error)
	Reply(ctx context.Context, req ReplyRequest) (Stream, error)
}
