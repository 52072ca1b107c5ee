package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BySessionToken matches rows written for one intake session token.
type BySessionToken struct {
	Token string
}

func (s BySessionToken) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_token = ?", s.Token)
}

type BySessionID struct {
	ID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.ID)
}
