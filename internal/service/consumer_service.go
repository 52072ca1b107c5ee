package service

import (
	"context"

	"move-quote-be/internal/dto"
	"move-quote-be/internal/entity"
	"move-quote-be/internal/pkg/logger"
	"move-quote-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		logger:     log,
	}
}

// Consume starts draining the session.persist topic. It returns once the
// subscription is set up; messages are processed until ctx is cancelled.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PersistSessionMessage
	if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("PERSIST", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	record := &entity.SessionRecord{
		SessionId:      payload.SessionId,
		SessionToken:   payload.SessionToken,
		CurrentPhase:   payload.CurrentPhase,
		FieldsStatus:   payload.FieldsStatus,
		ItemsCount:     payload.ItemsCount,
		CompletionRate: payload.CompletionRate,
		LastActivityAt: payload.LastActivityAt,
	}

	// A failed write is acked: the next turn of the session publishes a newer
	// snapshot that supersedes this one.
	if err := cs.upsert(ctx, record); err != nil {
		cs.logger.Error("PERSIST", "Failed to persist session", map[string]interface{}{
			"session_id": payload.SessionId.String(),
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	cs.logger.Debug("PERSIST", "Session persisted", map[string]interface{}{
		"session_id": payload.SessionId.String(),
		"phase":      payload.CurrentPhase,
	})
	msg.Ack()
}

func (cs *consumerService) upsert(ctx context.Context, record *entity.SessionRecord) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.SessionRecordRepository().Upsert(ctx, record); err != nil {
		return err
	}
	return uow.Commit()
}
