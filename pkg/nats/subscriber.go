package nats

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"move-quote-be/internal/pkg/logger"
	"move-quote-be/pkg/events"

	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber handles listening for events from NATS.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logger.ILogger

	mu       sync.Mutex
	consumes []jetstream.ConsumeContext
}

func NewSubscriber(url string, log logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js, logger: log}, nil
}

// Subscribe registers a handler for a subject pattern on a durable consumer.
// A handler error naks the message so it is redelivered.
func (s *Subscriber) Subscribe(ctx context.Context, subject string, durableName string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var payload map[string]interface{}
		if err := sonic.Unmarshal(msg.Data(), &payload); err != nil {
			s.logger.Error("NATS", "Dropping undecodable event", map[string]interface{}{"subject": msg.Subject(), "error": err})
			_ = msg.Term()
			return
		}

		event := events.BaseEvent{
			Type:       strings.TrimPrefix(msg.Subject(), subjectPrefix),
			Data:       payload,
			OccurredAt: occurredAt(msg),
		}

		if err := handler(ctx, event); err != nil {
			s.logger.Warn("NATS", "Handler failed, event will be redelivered", map[string]interface{}{"subject": msg.Subject(), "error": err})
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.mu.Lock()
	s.consumes = append(s.consumes, cc)
	s.mu.Unlock()

	s.logger.Info("NATS", "Subscribed", map[string]interface{}{"subject": subject, "durable": durableName})
	return nil
}

func occurredAt(msg jetstream.Msg) time.Time {
	if h := msg.Headers(); h != nil {
		if t, err := time.Parse(time.RFC3339Nano, h.Get("Occurred-At")); err == nil {
			return t
		}
	}
	return time.Now()
}

// Close stops every consumer and closes the connection.
func (s *Subscriber) Close() {
	s.mu.Lock()
	for _, cc := range s.consumes {
		cc.Stop()
	}
	s.consumes = nil
	s.mu.Unlock()

	if s.nc != nil {
		s.nc.Close()
	}
}
