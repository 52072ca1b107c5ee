package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Quote struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId     uuid.UUID      `gorm:"type:uuid;not null;index"`
	SessionToken  string         `gorm:"type:text;not null;index"`
	CollectedData datatypes.JSON `gorm:"type:jsonb;not null"`
	Items         datatypes.JSON `gorm:"type:jsonb"`
	ContactEmail  string         `gorm:"type:varchar(255)"`
	ContactPhone  string         `gorm:"type:varchar(32)"`
	Status        string         `gorm:"type:varchar(20);not null;default:'submitted';index"`
	CompletedAt   *time.Time
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (Quote) TableName() string {
	return "quotes"
}
