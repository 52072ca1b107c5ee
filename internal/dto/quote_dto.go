package dto

import (
	"time"

	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/items"

	"github.com/google/uuid"
)

type SubmitQuoteRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"omitempty,max=32"`
}

type QuoteResponse struct {
	Id            uuid.UUID      `json:"quote_id"`
	SessionToken  string         `json:"session_token"`
	Status        string         `json:"status"`
	CollectedData field.Snapshot `json:"collected_data"`
	Items         []items.Item   `json:"items"`
	ContactEmail  string         `json:"contact_email,omitempty"`
	ContactPhone  string         `json:"contact_phone,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}

type UpdateQuoteStatusRequest struct {
	Id     uuid.UUID `json:"-"`
	Status string `json:"status" validate:"required,oneof=submitted processing completed cancelled"`
}

type UpdateQuoteStatusResponse struct {
	Id     uuid.UUID `json:"quote_id"`
	Status string    `json:"status"`
}
