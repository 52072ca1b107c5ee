package entity

import (
	"time"

	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/items"

	"github.com/google/uuid"
)

type QuoteStatus string

const (
	QuoteSubmitted  QuoteStatus = "submitted"
	QuoteProcessing QuoteStatus = "processing"
	QuoteCompleted  QuoteStatus = "completed"
	QuoteCancelled  QuoteStatus = "cancelled"
)

func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteSubmitted, QuoteProcessing, QuoteCompleted, QuoteCancelled:
		return true
	}
	return false
}

type Quote struct {
	Id            uuid.UUID
	SessionId     uuid.UUID
	SessionToken  string
	CollectedData field.Snapshot
	Items         []items.Item
	ContactEmail  string
	ContactPhone  string
	Status        QuoteStatus
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
