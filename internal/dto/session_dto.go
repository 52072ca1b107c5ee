package dto

import (
	"time"

	"move-quote-be/pkg/intake/field"

	"github.com/google/uuid"
)

// PersistSessionMessage is the payload of the session.persist topic.
type PersistSessionMessage struct {
	SessionId      uuid.UUID      `json:"session_id"`
	SessionToken   string         `json:"session_token"`
	CurrentPhase   int            `json:"current_phase"`
	FieldsStatus   field.Snapshot `json:"fields_status"`
	ItemsCount     int            `json:"items_count"`
	CompletionRate float64        `json:"completion_rate"`
	LastActivityAt time.Time      `json:"last_activity_at"`
}
