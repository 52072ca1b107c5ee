package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionRecord is the last persisted snapshot of a live intake session.
type SessionRecord struct {
	SessionId      uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SessionToken   string         `gorm:"type:text;not null;uniqueIndex"`
	CurrentPhase   int            `gorm:"not null;default:0"`
	FieldsStatus   datatypes.JSON `gorm:"type:jsonb"`
	ItemsCount     int            `gorm:"not null;default:0"`
	CompletionRate float64        `gorm:"not null;default:0"`
	LastActivityAt time.Time      `gorm:"not null;index"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

func (SessionRecord) TableName() string {
	return "session_records"
}
