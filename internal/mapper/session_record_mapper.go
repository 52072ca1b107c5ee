package mapper

import (
	"move-quote-be/internal/entity"
	"move-quote-be/internal/model"
)

type SessionRecordMapper struct{}

func NewSessionRecordMapper() *SessionRecordMapper {
	return &SessionRecordMapper{}
}

func (m *SessionRecordMapper) ToEntity(r *model.SessionRecord) *entity.SessionRecord {
	if r == nil {
		return nil
	}
	e := &entity.SessionRecord{
		SessionId:      r.SessionId,
		SessionToken:   r.SessionToken,
		CurrentPhase:   r.CurrentPhase,
		ItemsCount:     r.ItemsCount,
		CompletionRate: r.CompletionRate,
		LastActivityAt: r.LastActivityAt,
	}
	decodeJSON(r.FieldsStatus, &e.FieldsStatus)
	return e
}

func (m *SessionRecordMapper) ToModel(r *entity.SessionRecord) (*model.SessionRecord, error) {
	if r == nil {
		return nil, nil
	}
	fields, err := encodeJSON(r.FieldsStatus)
	if err != nil {
		return nil, err
	}
	return &model.SessionRecord{
		SessionId:      r.SessionId,
		SessionToken:   r.SessionToken,
		CurrentPhase:   r.CurrentPhase,
		FieldsStatus:   fields,
		ItemsCount:     r.ItemsCount,
		CompletionRate: r.CompletionRate,
		LastActivityAt: r.LastActivityAt,
	}, nil
}
