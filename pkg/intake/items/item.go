// Package items reconciles detected and selected move items with the list a
// session has already accumulated.
package items

import (
	"context"
	"strings"
)

type Category string

const (
	LargeFurniture Category = "large_furniture"
	Appliances     Category = "appliances"
	SmallItems     Category = "small_items"
)

func (c Category) Valid() bool {
	switch c {
	case LargeFurniture, Appliances, SmallItems:
		return true
	}
	return false
}

// Item is a merge unit. Its identity is (Name, Category); ID only points back
// to a catalog entry or a numbered custom entry.
type Item struct {
	ID            string   `json:"id,omitempty"`
	Name          string   `json:"name" validate:"required"`
	LocalizedName string   `json:"localized_name,omitempty"`
	Category      Category `json:"category"`
	Count         int      `json:"count"`
	Note          string   `json:"note,omitempty"`
	SourceImageID string   `json:"source_image_id,omitempty"`
}

type mergeKey struct {
	name     string
	category Category
}

func (it Item) key() mergeKey {
	return mergeKey{name: strings.TrimSpace(it.Name), category: it.Category}
}

func TotalCount(list []Item) int {
	n := 0
	for _, it := range list {
		n += it.Count
	}
	return n
}

// Extractor detects items in an uploaded photo.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) ([]Item, error)
}
