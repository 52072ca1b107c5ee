package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"move-quote-be/internal/dto"
	"move-quote-be/internal/entity"
	"move-quote-be/internal/pkg/logger"
	"move-quote-be/internal/repository/contract"
	"move-quote-be/internal/repository/memory"
	"move-quote-be/internal/repository/specification"
	"move-quote-be/internal/repository/unitofwork"
	"move-quote-be/pkg/events"
	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/intakeerr"
	"move-quote-be/pkg/intake/items"
	"move-quote-be/pkg/intake/session"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memQuotes is an in-memory QuoteRepository. It understands the
// specifications the quote service uses.
type memQuotes struct {
	mu   sync.Mutex
	rows map[uuid.UUID]entity.Quote
}

func (r *memQuotes) Create(_ context.Context, q *entity.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[q.Id] = *q
	return nil
}

func (r *memQuotes) Update(ctx context.Context, q *entity.Quote) error {
	return r.Create(ctx, q)
}

func (r *memQuotes) match(q entity.Quote, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch s := sp.(type) {
		case specification.ByID:
			if q.Id != s.ID {
				return false
			}
		case specification.BySessionToken:
			if q.SessionToken != s.Token {
				return false
			}
		}
	}
	return true
}

func (r *memQuotes) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Quote, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *memQuotes) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Quote
	for _, q := range r.rows {
		if r.match(q, specs) {
			q := q
			out = append(out, &q)
		}
	}
	return out, nil
}

type memUow struct {
	quotes    *memQuotes
	commits   *int
	committed bool
}

func (u *memUow) Begin(context.Context) error { return nil }
func (u *memUow) Commit() error {
	u.committed = true
	*u.commits++
	return nil
}
func (u *memUow) Rollback() error { return nil }

func (u *memUow) QuoteRepository() contract.QuoteRepository                 { return u.quotes }
func (u *memUow) SessionRecordRepository() contract.SessionRecordRepository { return nil }
func (u *memUow) UploadedImageRepository() contract.UploadedImageRepository { return nil }

type memUowFactory struct {
	quotes  *memQuotes
	commits int
}

func (f *memUowFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &memUow{quotes: f.quotes, commits: &f.commits}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type recordingNotifier struct {
	calls []string
}

func (n *recordingNotifier) NotifyQuoteStatus(token string, _ uuid.UUID, status string) {
	n.calls = append(n.calls, token+":"+status)
}

type quoteFixture struct {
	svc       *quoteService
	sessions  *session.Manager
	uow       *memUowFactory
	publisher *recordingPublisher
	notifier  *recordingNotifier
}

func newQuoteFixture(t *testing.T) *quoteFixture {
	t.Helper()
	log := logger.NewNopLogger()
	f := &quoteFixture{
		sessions:  session.NewManager(memory.NewSessionRepository(time.Hour, 0, log), session.NewTokens("test-secret"), log),
		uow:       &memUowFactory{quotes: &memQuotes{rows: map[uuid.UUID]entity.Quote{}}},
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
	}
	f.svc = NewQuoteService(f.sessions, f.uow, f.publisher, f.notifier, log).(*quoteService)
	return f
}

func (f *quoteFixture) completeSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := f.sessions.Create()
	require.NoError(t, err)
	require.NoError(t, f.sessions.Do(s, func(tx *session.Tx) error {
		for _, k := range []field.Key{field.PeopleCount, field.FromAddress, field.ToAddress, field.MoveDate} {
			require.NoError(t, tx.Fields().ConfirmValue(k, "x"))
		}
		require.NoError(t, tx.Fields().ConfirmValue(field.FromBuildingType, "戸建て"))
		confirmed := tx.Tray().Confirm([]items.Item{{Name: "冷蔵庫", Category: items.Appliances, Count: 1}})
		return tx.Fields().ConfirmValue(field.Items, confirmed)
	}))
	return s
}

func TestQuoteService_SubmitForSession(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, f *quoteFixture) *session.Session
		contact session.Contact
		wantErr error
		missing []string
	}{
		{
			name: "incomplete fields",
			prepare: func(t *testing.T, f *quoteFixture) *session.Session {
				s, err := f.sessions.Create()
				require.NoError(t, err)
				return s
			},
			contact: session.Contact{Email: "a@example.com"},
			missing: []string{"people_count", "from_address", "to_address", "from_building_type", "move_date", "items"},
		},
		{
			name:    "contact required",
			prepare: func(t *testing.T, f *quoteFixture) *session.Session { return f.completeSession(t) },
			wantErr: intakeerr.ErrContactRequired,
		},
		{
			name: "pending recognition",
			prepare: func(t *testing.T, f *quoteFixture) *session.Session {
				s := f.completeSession(t)
				require.NoError(t, f.sessions.Do(s, func(tx *session.Tx) error {
					return tx.Tray().Stage("img-1", []items.Item{{Name: "ソファ", Category: items.LargeFurniture, Count: 1}})
				}))
				return s
			},
			contact: session.Contact{Phone: "090"},
			wantErr: intakeerr.ErrRecognitionPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQuoteFixture(t)
			s := tt.prepare(t, f)

			_, err := f.svc.SubmitForSession(context.Background(), s, tt.contact)
			require.Error(t, err)
			if tt.missing != nil {
				assert.ElementsMatch(t, tt.missing, intakeerr.MissingFields(err))
				code, _ := intakeerr.Describe(err)
				assert.Equal(t, intakeerr.CodeIncompleteFields, code)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, f.uow.quotes.rows)
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestQuoteService_SubmitStoresAndPublishes(t *testing.T) {
	f := newQuoteFixture(t)
	s := f.completeSession(t)

	q, err := f.svc.SubmitForSession(context.Background(), s, session.Contact{Email: "a@example.com"})
	require.NoError(t, err)

	assert.Equal(t, entity.QuoteSubmitted, q.Status)
	assert.Equal(t, s.Token, q.SessionToken)
	assert.Equal(t, "a@example.com", q.ContactEmail)
	assert.Equal(t, 1, items.TotalCount(q.Items))
	assert.Equal(t, 1, f.uow.commits)
	require.Contains(t, f.uow.quotes.rows, q.Id)

	require.Len(t, f.publisher.events, 1)
	evt := f.publisher.events[0].(events.BaseEvent)
	assert.Equal(t, events.QuoteSubmitted, evt.EventType())
	assert.Equal(t, q.Id.String(), evt.String("quote_id"))
	assert.Equal(t, "a@example.com", evt.String("email"))

	// The stored contact is reused by a later submission without one.
	again, err := f.svc.SubmitForSession(context.Background(), s, session.Contact{})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", again.ContactEmail)
	assert.NotEqual(t, q.Id, again.Id)
}

func TestQuoteService_SubmitByToken(t *testing.T) {
	f := newQuoteFixture(t)

	_, err := f.svc.Submit(context.Background(), &dto.SubmitQuoteRequest{SessionToken: "bogus", Email: "a@example.com"})
	assert.ErrorIs(t, err, intakeerr.ErrInvalidSession)

	s := f.completeSession(t)
	res, err := f.svc.Submit(context.Background(), &dto.SubmitQuoteRequest{SessionToken: s.Token, Phone: "090-1234-5678"})
	require.NoError(t, err)
	assert.Equal(t, "submitted", res.Status)
	assert.Equal(t, "090-1234-5678", res.ContactPhone)

	list, err := f.svc.ListBySession(context.Background(), s.Token)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Id, list[0].Id)
}

func TestQuoteService_UpdateStatus(t *testing.T) {
	f := newQuoteFixture(t)
	s := f.completeSession(t)
	q, err := f.svc.SubmitForSession(context.Background(), s, session.Contact{Email: "a@example.com"})
	require.NoError(t, err)
	f.publisher.events = nil

	res, err := f.svc.UpdateStatus(context.Background(), &dto.UpdateQuoteStatusRequest{Id: q.Id, Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Status)

	shown, err := f.svc.Show(context.Background(), q.Id)
	require.NoError(t, err)
	assert.Equal(t, "completed", shown.Status)
	assert.NotNil(t, shown.CompletedAt)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.QuoteStatusChanged, f.publisher.events[0].EventType())
	assert.Equal(t, []string{s.Token + ":completed"}, f.notifier.calls)

	_, err = f.svc.UpdateStatus(context.Background(), &dto.UpdateQuoteStatusRequest{Id: q.Id, Status: "processing"})
	require.NoError(t, err)
	shown, err = f.svc.Show(context.Background(), q.Id)
	require.NoError(t, err)
	assert.Nil(t, shown.CompletedAt)
}

func TestQuoteService_NotFound(t *testing.T) {
	f := newQuoteFixture(t)

	_, err := f.svc.Show(context.Background(), uuid.New())
	var ferr *fiber.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fiber.StatusNotFound, ferr.Code)

	_, err = f.svc.UpdateStatus(context.Background(), &dto.UpdateQuoteStatusRequest{Id: uuid.New(), Status: "cancelled"})
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fiber.StatusNotFound, ferr.Code)
}
