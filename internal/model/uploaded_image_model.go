package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UploadedImage struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionToken      string         `gorm:"type:text;not null;index"`
	FilePath          string         `gorm:"type:text;not null"`
	FileSize          int64          `gorm:"not null"`
	MimeType          string         `gorm:"type:varchar(64);not null"`
	RecognitionResult datatypes.JSON `gorm:"type:jsonb"`
	Status            string         `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
}

func (UploadedImage) TableName() string {
	return "uploaded_images"
}
