package service

import (
	"context"
	"fmt"
	"time"

	"move-quote-be/internal/dto"
	"move-quote-be/internal/entity"
	"move-quote-be/internal/pkg/logger"
	"move-quote-be/internal/repository/specification"
	"move-quote-be/internal/repository/unitofwork"
	"move-quote-be/pkg/events"
	"move-quote-be/pkg/intake/address"
	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/intakeerr"
	"move-quote-be/pkg/intake/items"
	"move-quote-be/pkg/intake/session"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IQuoteService interface {
	QuoteSubmitter
	Submit(ctx context.Context, req *dto.SubmitQuoteRequest) (*dto.QuoteResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.QuoteResponse, error)
	ListBySession(ctx context.Context, token string) ([]*dto.QuoteResponse, error)
	UpdateStatus(ctx context.Context, req *dto.UpdateQuoteStatusRequest) (*dto.UpdateQuoteStatusResponse, error)
}

// EventPublisher is the part of the NATS publisher the services use.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// QuoteStatusNotifier pushes a status change to the connections of a session.
type QuoteStatusNotifier interface {
	NotifyQuoteStatus(token string, quoteID uuid.UUID, status string)
}

type quoteService struct {
	sessions   *session.Manager
	uowFactory unitofwork.RepositoryFactory
	publisher  EventPublisher
	notifier   QuoteStatusNotifier
	logger     logger.ILogger
	now        func() time.Time
}

func NewQuoteService(
	sessions *session.Manager,
	uowFactory unitofwork.RepositoryFactory,
	publisher EventPublisher,
	notifier QuoteStatusNotifier,
	log logger.ILogger,
) IQuoteService {
	return &quoteService{
		sessions:   sessions,
		uowFactory: uowFactory,
		publisher:  publisher,
		notifier:   notifier,
		logger:     log,
		now:        time.Now,
	}
}

// SubmitForSession checks the session can be quoted, takes a snapshot under
// its lock and stores the quote. A contact given here replaces the stored one.
func (s *quoteService) SubmitForSession(ctx context.Context, sess *session.Session, contact session.Contact) (*entity.Quote, error) {
	var quote *entity.Quote
	err := s.sessions.Do(sess, func(tx *session.Tx) error {
		for _, r := range address.Roles {
			if tx.Address(r).Busy() {
				return intakeerr.ErrSubflowBusy
			}
		}
		if tx.Tray().HasPending() {
			return intakeerr.ErrRecognitionPending
		}
		snap := tx.Fields().Snapshot()
		if c := field.ComputeCompletion(snap); !c.CanSubmit {
			return &intakeerr.IncompleteFieldsError{Missing: field.KeysToStrings(c.MissingFields)}
		}
		if contact.Known() {
			*tx.Contact() = contact
		}
		if !tx.Contact().Known() {
			return intakeerr.ErrContactRequired
		}

		quote = &entity.Quote{
			Id:            uuid.New(),
			SessionId:     tx.ID(),
			SessionToken:  tx.Token(),
			CollectedData: snap,
			Items:         tx.Tray().Confirmed(),
			ContactEmail:  tx.Contact().Email,
			ContactPhone:  tx.Contact().Phone,
			Status:        entity.QuoteSubmitted,
			CreatedAt:     s.now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.create(ctx, quote); err != nil {
		return nil, err
	}

	s.logger.Info("QUOTE", "Quote submitted", map[string]interface{}{
		"quote_id":   quote.Id.String(),
		"session_id": quote.SessionId.String(),
		"items":      items.TotalCount(quote.Items),
	})
	s.publish(ctx, events.QuoteSubmitted, map[string]interface{}{
		"quote_id":      quote.Id.String(),
		"session_token": quote.SessionToken,
		"email":         quote.ContactEmail,
		"phone":         quote.ContactPhone,
		"items_count":   items.TotalCount(quote.Items),
	})
	return quote, nil
}

func (s *quoteService) create(ctx context.Context, quote *entity.Quote) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.QuoteRepository().Create(ctx, quote); err != nil {
		return fmt.Errorf("failed to create quote: %w", err)
	}
	return uow.Commit()
}

func (s *quoteService) Submit(ctx context.Context, req *dto.SubmitQuoteRequest) (*dto.QuoteResponse, error) {
	sess, err := s.sessions.Get(req.SessionToken)
	if err != nil {
		return nil, err
	}
	quote, err := s.SubmitForSession(ctx, sess, session.Contact{Email: req.Email, Phone: req.Phone})
	if err != nil {
		return nil, err
	}
	return toQuoteResponse(quote), nil
}

func (s *quoteService) Show(ctx context.Context, id uuid.UUID) (*dto.QuoteResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	quote, err := uow.QuoteRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Quote not found")
	}
	return toQuoteResponse(quote), nil
}

func (s *quoteService) ListBySession(ctx context.Context, token string) ([]*dto.QuoteResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	quotes, err := uow.QuoteRepository().FindAll(ctx,
		specification.BySessionToken{Token: token},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		result = append(result, toQuoteResponse(q))
	}
	return result, nil
}

func (s *quoteService) UpdateStatus(ctx context.Context, req *dto.UpdateQuoteStatusRequest) (*dto.UpdateQuoteStatusResponse, error) {
	status := entity.QuoteStatus(req.Status)
	if !status.Valid() {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid status")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	quote, err := uow.QuoteRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Quote not found")
	}

	now := s.now()
	quote.Status = status
	quote.UpdatedAt = &now
	if status == entity.QuoteCompleted {
		quote.CompletedAt = &now
	} else {
		quote.CompletedAt = nil
	}
	if err := uow.QuoteRepository().Update(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("QUOTE", "Quote status changed", map[string]interface{}{"quote_id": quote.Id.String(), "status": req.Status})
	s.publish(ctx, events.QuoteStatusChanged, map[string]interface{}{
		"quote_id":      quote.Id.String(),
		"session_token": quote.SessionToken,
		"status":        req.Status,
	})
	if s.notifier != nil {
		s.notifier.NotifyQuoteStatus(quote.SessionToken, quote.Id, req.Status)
	}

	return &dto.UpdateQuoteStatusResponse{Id: quote.Id, Status: req.Status}, nil
}

// publish is best effort: the quote is already stored.
func (s *quoteService) publish(ctx context.Context, typ string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	evt := events.BaseEvent{Type: typ, Data: data, OccurredAt: s.now()}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("QUOTE", "Failed to publish event", map[string]interface{}{"type": typ, "error": err.Error()})
	}
}

func toQuoteResponse(q *entity.Quote) *dto.QuoteResponse {
	list := q.Items
	if list == nil {
		list = []items.Item{}
	}
	return &dto.QuoteResponse{
		Id:            q.Id,
		SessionToken:  q.SessionToken,
		Status:        string(q.Status),
		CollectedData: q.CollectedData,
		Items:         list,
		ContactEmail:  q.ContactEmail,
		ContactPhone:  q.ContactPhone,
		CompletedAt:   q.CompletedAt,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}
