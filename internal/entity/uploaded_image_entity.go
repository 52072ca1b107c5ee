package entity

import (
	"time"

	"move-quote-be/pkg/intake/items"

	"github.com/google/uuid"
)

type ImageStatus string

const (
	ImagePending    ImageStatus = "pending"
	ImageRecognized ImageStatus = "recognized"
	ImageFailed     ImageStatus = "failed"
)

type UploadedImage struct {
	Id                uuid.UUID
	SessionToken      string
	FilePath          string
	FileSize          int64
	MimeType          string
	RecognitionResult []items.Item
	Status            ImageStatus
	CreatedAt         time.Time
}
