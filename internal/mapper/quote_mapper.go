package mapper

import (
	"time"

	"move-quote-be/internal/entity"
	"move-quote-be/internal/model"
)

type QuoteMapper struct{}

func NewQuoteMapper() *QuoteMapper {
	return &QuoteMapper{}
}

func (m *QuoteMapper) ToEntity(q *model.Quote) *entity.Quote {
	if q == nil {
		return nil
	}

	var updatedAt *time.Time
	if !q.UpdatedAt.IsZero() {
		t := q.UpdatedAt
		updatedAt = &t
	}

	e := &entity.Quote{
		Id:           q.Id,
		SessionId:    q.SessionId,
		SessionToken: q.SessionToken,
		ContactEmail: q.ContactEmail,
		ContactPhone: q.ContactPhone,
		Status:       entity.QuoteStatus(q.Status),
		CompletedAt:  q.CompletedAt,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    updatedAt,
	}
	decodeJSON(q.CollectedData, &e.CollectedData)
	decodeJSON(q.Items, &e.Items)
	return e
}

func (m *QuoteMapper) ToModel(q *entity.Quote) (*model.Quote, error) {
	if q == nil {
		return nil, nil
	}
	data, err := encodeJSON(q.CollectedData)
	if err != nil {
		return nil, err
	}
	itemsJSON, err := encodeJSON(q.Items)
	if err != nil {
		return nil, err
	}

	var updatedAt time.Time
	if q.UpdatedAt != nil {
		updatedAt = *q.UpdatedAt
	}

	return &model.Quote{
		Id:            q.Id,
		SessionId:     q.SessionId,
		SessionToken:  q.SessionToken,
		CollectedData: data,
		Items:         itemsJSON,
		ContactEmail:  q.ContactEmail,
		ContactPhone:  q.ContactPhone,
		Status:        string(q.Status),
		CompletedAt:   q.CompletedAt,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     updatedAt,
	}, nil
}

func (m *QuoteMapper) ToEntities(quotes []*model.Quote) []*entity.Quote {
	entities := make([]*entity.Quote, len(quotes))
	for i, q := range quotes {
		entities[i] = m.ToEntity(q)
	}
	return entities
}
