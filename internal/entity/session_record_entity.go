package entity

import (
	"time"

	"move-quote-be/pkg/intake/field"

	"github.com/google/uuid"
)

type SessionRecord struct {
	SessionId      uuid.UUID
	SessionToken   string
	CurrentPhase   int
	FieldsStatus   field.Snapshot
	ItemsCount     int
	CompletionRate float64
	LastActivityAt time.Time
}
