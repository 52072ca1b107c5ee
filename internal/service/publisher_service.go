package service

import (
	"context"

	"move-quote-be/internal/dto"
	"move-quote-be/internal/entity"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

type IPublisherService interface {
	SessionPersister
	Publish(ctx context.Context, payload []byte) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}

// Persist queues a session snapshot for the session_records table.
func (ps *publisherService) Persist(ctx context.Context, rec *entity.SessionRecord) error {
	payload, err := sonic.Marshal(dto.PersistSessionMessage{
		SessionId:      rec.SessionId,
		SessionToken:   rec.SessionToken,
		CurrentPhase:   rec.CurrentPhase,
		FieldsStatus:   rec.FieldsStatus,
		ItemsCount:     rec.ItemsCount,
		CompletionRate: rec.CompletionRate,
		LastActivityAt: rec.LastActivityAt,
	})
	if err != nil {
		return err
	}
	return ps.Publish(ctx, payload)
}
