package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"move-quote-be/internal/config"
	"move-quote-be/internal/entity"
	"move-quote-be/internal/pkg/logger"
	"move-quote-be/internal/repository/cache"
	"move-quote-be/internal/repository/memory"
	"move-quote-be/pkg/intake/address"
	"move-quote-be/pkg/intake/engine"
	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/intakeerr"
	"move-quote-be/pkg/intake/items"
	"move-quote-be/pkg/intake/options"
	"move-quote-be/pkg/intake/phase"
	"move-quote-be/pkg/intake/protocol"
	"move-quote-be/pkg/intake/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []protocol.Outbound
}

func (r *recorder) Emit(_ context.Context, ev protocol.Outbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) take() []protocol.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func typesOf(evs []protocol.Outbound) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		if ev.EventType() == protocol.TypeTextDelta {
			if len(out) > 0 && out[len(out)-1] == protocol.TypeTextDelta {
				continue
			}
		}
		out = append(out, ev.EventType())
	}
	return out
}

func lastOf[T protocol.Outbound](t *testing.T, evs []protocol.Outbound) T {
	t.Helper()
	for i := len(evs) - 1; i >= 0; i-- {
		if ev, ok := evs[i].(T); ok {
			return ev
		}
	}
	var zero T
	t.Fatalf("no %T event in %v", zero, typesOf(evs))
	return zero
}

type fakeEngine struct {
	mu      sync.Mutex
	extract func(turn engine.Turn) (engine.Extraction, error)
	reply   string
	replies []engine.ReplyRequest
}

func (e *fakeEngine) Extract(_ context.Context, turn engine.Turn) (engine.Extraction, error) {
	if e.extract == nil {
		return engine.Extraction{}, nil
	}
	return e.extract(turn)
}

func (e *fakeEngine) Reply(_ context.Context, req engine.ReplyRequest) (engine.Stream, error) {
	e.mu.Lock()
	e.replies = append(e.replies, req)
	e.mu.Unlock()
	text := e.reply
	if text == "" {
		text = "好的"
	}
	return engine.TextStream(text, 2), nil
}

type fakeResolver struct {
	results map[string][]address.Candidate
	err     error
}

func (r *fakeResolver) Resolve(_ context.Context, raw string) ([]address.Candidate, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.results[raw], nil
}

type fakeQuotes struct {
	err error
}

func (q *fakeQuotes) SubmitForSession(_ context.Context, s *session.Session, _ session.Contact) (*entity.Quote, error) {
	if q.err != nil {
		return nil, q.err
	}
	return &entity.Quote{Id: uuid.New(), SessionToken: s.Token}, nil
}

type fakeRecognition struct {
	results map[string][]items.Item
}

func (r *fakeRecognition) Recognition(_ context.Context, _ string, imageID string) ([]items.Item, error) {
	found, ok := r.results[imageID]
	if !ok {
		return nil, intakeerr.Malformed(errors.New("unknown image id"))
	}
	return found, nil
}

type intakeFixture struct {
	svc      *intakeService
	sessions *session.Manager
	engine   *fakeEngine
	resolver *fakeResolver
	quotes   *fakeQuotes
	em       *recorder
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()
	log := logger.NewNopLogger()
	sessions := session.NewManager(memory.NewSessionRepository(time.Hour, 0, log), session.NewTokens("test-secret"), log)
	f := &intakeFixture{
		sessions: sessions,
		engine:   &fakeEngine{},
		resolver: &fakeResolver{results: map[string][]address.Candidate{}},
		quotes:   &fakeQuotes{},
		em:       &recorder{},
	}
	cfg := &config.Config{
		Session: config.SessionConfig{MaxMessages: 20},
		Intake:  config.IntakeConfig{CollaboratorTimeout: time.Second, ReplyChunkRunes: 4},
	}
	f.svc = NewIntakeService(
		sessions,
		f.engine,
		f.resolver,
		options.Default(),
		cache.NewMemoryHistoryRepository(20, time.Hour),
		nil,
		f.quotes,
		nil,
		cfg,
		log,
	).(*intakeService)
	return f
}

func (f *intakeFixture) open(t *testing.T) *session.Session {
	t.Helper()
	s, err := f.svc.Open(context.Background(), f.em, "")
	require.NoError(t, err)
	f.em.take()
	return s
}

func (f *intakeFixture) snapshot(t *testing.T, s *session.Session) field.Snapshot {
	t.Helper()
	var snap field.Snapshot
	require.NoError(t, f.sessions.Do(s, func(tx *session.Tx) error {
		snap = tx.Fields().Snapshot()
		return nil
	}))
	return snap
}

func extractOnce(ext engine.Extraction) func(engine.Turn) (engine.Extraction, error) {
	used := false
	return func(engine.Turn) (engine.Extraction, error) {
		if used {
			return engine.Extraction{}, nil
		}
		used = true
		return ext, nil
	}
}

func TestIntake_OpenNewAndResume(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	s, err := f.svc.Open(ctx, f.em, "")
	require.NoError(t, err)
	evs := f.em.take()
	assert.Equal(t, []string{protocol.TypeSession, protocol.TypeTextDelta, protocol.TypeTextDone, protocol.TypeMetadata}, typesOf(evs))

	sessEv := evs[0].(protocol.SessionEvent)
	assert.Equal(t, s.Token, sessEv.SessionToken)
	assert.False(t, sessEv.Resumed)
	md := lastOf[protocol.Metadata](t, evs)
	assert.Equal(t, phase.Opening, *md.CurrentPhase)
	assert.Equal(t, []string{"获取搬家报价", "咨询搬家问题", "了解服务内容"}, *md.QuickOptions)

	again, err := f.svc.Open(ctx, f.em, s.Token)
	require.NoError(t, err)
	assert.Same(t, s, again)
	evs = f.em.take()
	assert.Equal(t, []string{protocol.TypeSession, protocol.TypeMessageHistory, protocol.TypeMetadata}, typesOf(evs))
	assert.True(t, evs[0].(protocol.SessionEvent).Resumed)
	history := evs[1].(protocol.MessageHistory)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "assistant", history.Messages[0].Role)
}

func TestIntake_PeopleCountConfirmation(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()
	s := f.open(t)

	f.engine.extract = extractOnce(engine.Extraction{Updates: []engine.Update{
		{Key: field.PeopleCount, Status: field.InProgress, Value: 2},
	}})
	require.NoError(t, f.svc.HandleMessage(ctx, f.em, s, "我们两个人"))
	evs := f.em.take()

	types := typesOf(evs)
	assert.Equal(t, []string{protocol.TypeTextDelta, protocol.TypeTextDone, protocol.TypeMetadata}, types)
	md := lastOf[protocol.Metadata](t, evs)
	assert.Equal(t, field.InProgress, md.FieldsStatus.Status(field.PeopleCount))
	assert.Equal(t, []string{"确认无误", "需要修改"}, *md.QuickOptions)
	assert.Equal(t, phase.People, *md.CurrentPhase)
	before := md.Completion.CompletionRate

	require.NoError(t, f.svc.HandleQuickOption(ctx, f.em, s, "确认无误"))
	md = lastOf[protocol.Metadata](t, f.em.take())
	assert.Equal(t, field.Baseline, md.FieldsStatus.Status(field.PeopleCount))
	assert.Equal(t, 2, md.FieldsStatus.Value(field.PeopleCount))
	assert.Greater(t, md.Completion.CompletionRate, before)
	assert.Equal(t, phase.Address, *md.CurrentPhase)
}

func TestIntake_AddressDisambiguation(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()
	s := f.open(t)

	candidates := []address.Candidate{
		{FormattedAddress: "東京都渋谷区道玄坂1丁目", City: "渋谷区"},
		{FormattedAddress: "東京都渋谷区道玄坂2丁目", City: "渋谷区", PostalCode: "150-0043"},
		{FormattedAddress: "東京都渋谷区神泉町", City: "渋谷区"},
	}
	f.resolver.results["渋谷区道玄坂"] = candidates
	f.engine.extract = extractOnce(engine.Extraction{Addresses: map[address.Role]string{address.From: "渋谷区道玄坂"}})

	require.NoError(t, f.svc.HandleMessage(ctx, f.em, s, "从渋谷区道玄坂搬出"))
	md := lastOf[protocol.Metadata](t, f.em.take())
	require.Equal(t, session.UIAddressVerify, md.UIComponent.Type)
	verify := md.UIComponent.Data.(session.AddressVerifyData)
	assert.Equal(t, address.Disambiguating, verify.State)
	assert.Len(t, verify.Candidates, 3)

	require.NoError(t, f.svc.HandleAddressSelected(ctx, f.em, s, &protocol.AddressSelected{AddressType: address.From, Index: ptr(1)}))
	evs := f.em.take()
	sel := evs[0].(protocol.AddressSelectedEvent)
	assert.Equal(t, address.Confirming, sel.State)
	require.NotNil(t, sel.Address)
	assert.Equal(t, candidates[1].FormattedAddress, sel.Address.FormattedAddress)

	require.NoError(t, f.svc.HandleAddressConfirmed(ctx, f.em, s, &protocol.AddressConfirmed{AddressType: address.From, Confirmed: true}))
	evs = f.em.take()
	assert.True(t, evs[0].(protocol.AddressConfirmedEvent).Confirmed)

	snap := f.snapshot(t, s)
	assert.Equal(t, field.Baseline, snap.Status(field.FromAddress))
	assert.Equal(t, candidates[1].Value(), snap.Value(field.FromAddress))

	// a duplicate confirm is refused and changes nothing
	err := f.svc.HandleAddressConfirmed(ctx, f.em, s, &protocol.AddressConfirmed{AddressType: address.From, Confirmed: true})
	assert.ErrorIs(t, err, intakeerr.ErrMalformedMessage)
}

func TestIntake_AddressErrorsAreSurfaced(t *testing.T) {
	tests := []struct {
		name     string
		resolver *fakeResolver
		wantCode intakeerr.Code
	}{
		{
			name:     "no candidates",
			resolver: &fakeResolver{results: map[string][]address.Candidate{}},
			wantCode: intakeerr.CodeUnresolvedAddress,
		},
		{
			name:     "resolver down",
			resolver: &fakeResolver{err: errors.New("geocoder timeout")},
			wantCode: intakeerr.CodeCollaboratorUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIntakeFixture(t)
			f.svc.resolver = tt.resolver
			s := f.open(t)

			f.engine.extract = extractOnce(engine.Extraction{Addresses: map[address.Role]string{address.To: "どこか"}})
			require.NoError(t, f.svc.HandleMessage(context.Background(), f.em, s, "搬到どこか"))
			evs := f.em.take()

			errEv := lastOf[protocol.ErrorEvent](t, evs)
			assert.Equal(t, string(tt.wantCode), errEv.Code)
			require.Len(t, f.engine.replies, 1)
			assert.Equal(t, []string{errEv.Message}, f.engine.replies[0].Notices)

			require.NoError(t, f.sessions.Do(s, func(tx *session.Tx) error {
				assert.Equal(t, address.Idle, tx.Address(address.To).State())
				rec, _ := tx.Fields().Get(field.ToAddress)
				assert.NotEqual(t, field.InProgress, rec.Status, "a failed lookup leaves the field untouched")
				assert.Nil(t, rec.Value)
				return nil
			}))
		})
	}
}

func TestIntake_SecondAddressWhileBusy(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()
	s := f.open(t)

	f.resolver.results["大阪"] = []address.Candidate{{FormattedAddress: "大阪府大阪市北区"}, {FormattedAddress: "大阪府大阪市中央区"}}
	f.engine.extract = extractOnce(engine.Extraction{Addresses: map[address.Role]string{address.To: "大阪"}})
	require.NoError(t, f.svc.HandleMessage(ctx, f.em, s, "搬到大阪"))
	f.em.take()

	f.engine.extract = extractOnce(engine.Extraction{Addresses: map[address.Role]string{address.To: "京都"}})
	require.NoError(t, f.svc.HandleMessage(ctx, f.em, s, "不对，是京都"))
	errEv := lastOf[protocol.ErrorEvent](t, f.em.take())
	assert.Equal(t, string(intakeerr.CodeSubflowBusy), errEv.Code)

	require.NoError(t, f.sessions.Do(s, func(tx *session.Tx) error {
		assert.Equal(t, address.Disambiguating, tx.Address(address.To).State())
		assert.Equal(t, "大阪", tx.Address(address.To).Raw())
		return nil
	}))
}

func TestIntake_ExtractionFailureWritesNothing(t *testing.T) {
	f := newIntakeFixture(t)
	s := f.open(t)
	before := f.snapshot(t, s)

	f.engine.extract = func(engine.Turn) (engine.Extraction, error) {
		return engine.Extraction{}, context.DeadlineExceeded
	}
	require.NoError(t, f.svc.HandleMessage(context.Background(), f.em, s, "两个人"))
	evs := f.em.take()

	assert.Equal(t, []string{protocol.TypeError, protocol.TypeMetadata}, typesOf(evs))
	assert.Equal(t, string(intakeerr.CodeCollaboratorUnavailable), evs[0].(protocol.ErrorEvent).Code)
	assert.Equal(t, before.Status(field.PeopleCount), f.snapshot(t, s).Status(field.PeopleCount))
	assert.Empty(t, f.engine.replies)
}

func TestIntake_ResetDropsInflightExtraction(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()
	s := f.open(t)

	f.engine.extract = func(engine.Turn) (engine.Extraction, error) {
		// the user resets while the engine is still thinking
		require.NoError(t, f.svc.Reset(ctx, &recorder{}, s))
		return engine.Extraction{Updates: []engine.Update{{Key: field.PeopleCount, Status: field.InProgress, Value: 3}}}, nil
	}
	require.NoError(t, f.svc.HandleMessage(ctx, f.em, s, "三个人"))

	assert.Empty(t, f.em.take())
	assert.Equal(t, field.NotCollected, f.snapshot(t, s).Status(field.PeopleCount))
}

func TestIntake_Reset(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()
	s := f.open(t)

	require.NoError(t, f.sessions.Do(s, func(tx *session.Tx) error {
		return tx.Fields().ConfirmValue(field.PeopleCount, 2)
	}))
	require.NoError(t, f.svc.Reset(ctx, f.em, s))
	evs := f.em.take()

	assert.Equal(t, []string{protocol.TypeSessionReset, protocol.TypeTextDelta, protocol.TypeTextDone, protocol.TypeMetadata}, typesOf(evs))
	reset := evs[0].(protocol.SessionReset)
	assert.Equal(t, s.Token, reset.SessionToken)
	for _, k := range field.Keys {
		assert.Equal(t, field.NotCollected, reset.FieldsStatus.Status(k))
	}
	md := lastOf[protocol.Metadata](t, evs)
	assert.Zero(t, md.Completion.CompletionRate)
	assert.Equal(t, phase.Opening, *md.CurrentPhase)
}

func TestIntake_SpecialNotesMultiSelect(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()
	s := f.open(t)

	require.NoError(t, f.sessions.Do(s, func(tx *session.Tx) error {
		for _, k := range []field.Key{field.PeopleCount, field.FromAddress, field.ToAddress, field.MoveDate, field.Items} {
			require.NoError(t, tx.Fields().ConfirmValue(k, "x"))
		}
		require.NoError(t, tx.Fields().ConfirmValue(field.FromBuildingType, "戸建て"))
		require.NoError(t, tx.Fields().Set(field.ToFloorElevator, field.Asked, nil))
		require.NoError(t, tx.Fields().Set(field.PackingService, field.Asked, nil))
		return nil
	}))
	require.NoError(t, f.svc.project(ctx, f.em, s))
	md := lastOf[protocol.Metadata](t, f.em.take())
	require.True(t, md.MultiSelect)
	assert.Contains(t, *md.QuickOptions, "有钢琴需要搬运")

	require.NoError(t, f.svc.HandleQuickOption(ctx, f.em, s, "有钢琴需要搬运"))
	evs := f.em.take()
	assert.Equal(t, []string{protocol.TypeMetadata}, typesOf(evs), "a selection only refreshes the options")
	md = evs[0].(protocol.Metadata)
	assert.NotContains(t, *md.QuickOptions, "有钢琴需要搬运")
	assert.Contains(t, *md.QuickOptions, "没有了")

	require.NoError(t, f.svc.HandleQuickOption(ctx, f.em, s, "空调安装"))
	f.em.take()

	require.NoError(t, f.svc.HandleQuickOption(ctx, f.em, s, "没有了"))
	evs = f.em.take()
	assert.Contains(t, typesOf(evs), protocol.TypeTextDone)

	snap := f.snapshot(t, s)
	assert.Equal(t, field.Baseline, snap.Status(field.SpecialNotes))
	assert.Equal(t, []string{"有钢琴需要搬运", "空调安装"}, snap.Value(field.SpecialNotes))
	assert.Equal(t, "特殊事项：有钢琴需要搬运、空调安装", f.engine.replies[len(f.engine.replies)-1].Turn.Content)
}

func TestIntake_ItemRecognitionAndConfirm(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()
	s := f.open(t)

	detected := []items.Item{
		{Name: "Sofa", Category: items.LargeFurniture, Count: 1},
		{Name: "Sofa", Category: items.LargeFurniture, Count: 1},
		{Name: "TV", Category: items.Appliances, Count: 1},
	}
	require.NoError(t, f.svc.HandleImageUploaded(ctx, f.em, s, &protocol.ImageUploaded{ImageID: "img-1", Items: detected}))
	evs := f.em.take()
	rec := evs[0].(protocol.ItemsRecognized)
	assert.Equal(t, "img-1", rec.ImageID)
	assert.Len(t, rec.Items, 2)
	assert.Empty(t, rec.CurrentItems)
	md := lastOf[protocol.Metadata](t, evs)
	assert.Equal(t, session.UIItemEvaluation, md.UIComponent.Type)

	err := f.svc.HandleImageUploaded(ctx, f.em, s, &protocol.ImageUploaded{ImageID: "img-2", Items: detected})
	assert.ErrorIs(t, err, intakeerr.ErrRecognitionPending)
	assert.Empty(t, f.em.take())

	edited := []items.Item{{Name: "Sofa", Category: items.LargeFurniture, Count: 2}}
	require.NoError(t, f.svc.HandleItemsConfirmed(ctx, f.em, s, &protocol.ItemsConfirmed{Items: edited}))
	evs = f.em.take()
	confirmed := evs[0].(protocol.ItemsConfirmedEvent)
	assert.Equal(t, 2, confirmed.TotalCount)

	md = lastOf[protocol.Metadata](t, evs)
	assert.Equal(t, field.Baseline, md.FieldsStatus.Status(field.Items))
	assert.Equal(t, []string{"继续添加", "没有其他行李了"}, *md.QuickOptions)
}

func TestIntake_ItemsConfirmedIsValidated(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()
	s := f.open(t)

	require.NoError(t, f.svc.HandleItemsConfirmed(ctx, f.em, s, &protocol.ItemsConfirmed{Items: []items.Item{{ID: "spaceship", Count: 3}}}))
	evs := f.em.take()
	require.Len(t, evs, 1)
	invalid := evs[0].(protocol.ItemsValidationError)
	assert.Equal(t, []string{`invalid item: "spaceship"`}, invalid.Errors)
	assert.Equal(t, field.NotCollected, f.snapshot(t, s).Status(field.Items), "a rejected batch is not committed")

	picked := []items.Item{{ID: "no_such_id", Name: "x", Category: "bogus", Count: -5}}
	require.NoError(t, f.svc.HandleItemsConfirmed(ctx, f.em, s, &protocol.ItemsConfirmed{Items: picked}))
	confirmed := f.em.take()[0].(protocol.ItemsConfirmedEvent)
	assert.Equal(t, []items.Item{{ID: "custom_0", Name: "x", LocalizedName: "x", Category: items.SmallItems, Count: 1}}, confirmed.Items)
	assert.Equal(t, 1, confirmed.TotalCount)

	snap := f.snapshot(t, s)
	assert.Equal(t, field.Baseline, snap.Status(field.Items))
	assert.Equal(t, confirmed.Items, snap.Value(field.Items))
}

func TestIntake_ImageUploadedUsesStoredRecognition(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()
	s := f.open(t)
	f.svc.recognition = &fakeRecognition{results: map[string][]items.Item{
		"img-1": {{Name: "Desk", Category: items.LargeFurniture, Count: 1}},
	}}

	forged := []items.Item{{Name: "Piano", Category: items.LargeFurniture, Count: 9}}
	require.NoError(t, f.svc.HandleImageUploaded(ctx, f.em, s, &protocol.ImageUploaded{ImageID: "img-1", Items: forged}))
	rec := f.em.take()[0].(protocol.ItemsRecognized)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "Desk", rec.Items[0].Name)
	assert.Equal(t, 1, rec.Items[0].Count)

	err := f.svc.HandleImageUploaded(ctx, f.em, s, &protocol.ImageUploaded{ImageID: "img-x", Items: forged})
	assert.ErrorIs(t, err, intakeerr.ErrMalformedMessage)
	assert.Empty(t, f.em.take())
}

func TestIntake_SubmitQuote(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()
	s := f.open(t)

	f.quotes.err = &intakeerr.IncompleteFieldsError{Missing: []string{"people_count", "move_date"}}
	require.NoError(t, f.svc.HandleSubmitQuote(ctx, f.em, s, &protocol.SubmitQuote{}))
	evs := f.em.take()
	qe := evs[0].(protocol.QuoteError)
	assert.Equal(t, string(intakeerr.CodeIncompleteFields), qe.Code)
	assert.Equal(t, []string{"people_count", "move_date"}, qe.MissingFields)

	f.quotes.err = nil
	require.NoError(t, f.svc.HandleSubmitQuote(ctx, f.em, s, &protocol.SubmitQuote{Email: "a@example.com"}))
	evs = f.em.take()
	submitted := evs[0].(protocol.QuoteSubmitted)
	assert.NotEmpty(t, submitted.QuoteID)
}

func ptr[T any](v T) *T { return &v }
