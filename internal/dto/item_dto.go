package dto

import (
	"move-quote-be/pkg/intake/items"

	"github.com/google/uuid"
)

type UploadImageResponse struct {
	ImageId uuid.UUID    `json:"image_id"`
	Status  string       `json:"status"`
	Items   []items.Item `json:"items"`
}

type ValidateItemsRequest struct {
	Items []items.Item `json:"items" validate:"required"`
}

type ItemSearchResponse struct {
	Query   string               `json:"query"`
	Results []items.CatalogEntry `json:"results"`
}
