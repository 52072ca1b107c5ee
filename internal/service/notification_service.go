package service

import (
	"context"
	"fmt"

	"move-quote-be/internal/pkg/logger"
	"move-quote-be/internal/pkg/mailer"
	"move-quote-be/pkg/events"
	pktNats "move-quote-be/pkg/nats"
)

const (
	quoteSubmittedSubject = "events." + events.QuoteSubmitted
	mailerDurable         = "quote-mailer"
)

// EventSubscriber is the part of the NATS subscriber the services use.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject string, durableName string, handler pktNats.EventHandler) error
}

// NotificationService mails a confirmation for every submitted quote that
// carries an email address.
type NotificationService struct {
	subscriber EventSubscriber
	mailer     mailer.IEmailService
	logger     logger.ILogger
}

func NewNotificationService(sub EventSubscriber, mail mailer.IEmailService, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		mailer:     mail,
		logger:     log,
	}
}

// Start registers the durable mailer consumer.
func (s *NotificationService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, quoteSubmittedSubject, mailerDurable, s.handleEvent); err != nil {
		return fmt.Errorf("failed to start quote mailer: %w", err)
	}
	s.logger.Info("MAILER", "Quote mailer started", map[string]interface{}{"subject": quoteSubmittedSubject})
	return nil
}

func (s *NotificationService) handleEvent(_ context.Context, event events.Event) error {
	if event.EventType() != events.QuoteSubmitted {
		return nil
	}
	payload := event.Payload()
	email, _ := payload["email"].(string)
	quoteID, _ := payload["quote_id"].(string)
	if email == "" {
		s.logger.Debug("MAILER", "Quote has no email, skipping", map[string]interface{}{"quote_id": quoteID})
		return nil
	}

	phone, _ := payload["phone"].(string)
	summary := mailer.QuoteSummary{QuoteID: quoteID, ItemsCount: intValue(payload["items_count"]), Phone: phone}
	if err := s.mailer.SendQuoteConfirmation(email, summary); err != nil {
		s.logger.Error("MAILER", "Failed to send quote confirmation", map[string]interface{}{"quote_id": quoteID, "error": err.Error()})
		return err
	}

	s.logger.Info("MAILER", "Quote confirmation sent", map[string]interface{}{"quote_id": quoteID})
	return nil
}

// intValue reads a JSON number that went through a generic map.
func intValue(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
