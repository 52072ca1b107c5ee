package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"move-quote-be/internal/config"
	"move-quote-be/internal/constant"
	"move-quote-be/internal/entity"
	"move-quote-be/internal/pkg/logger"
	"move-quote-be/internal/repository/contract"
	"move-quote-be/pkg/intake/address"
	"move-quote-be/pkg/intake/engine"
	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/intakeerr"
	"move-quote-be/pkg/intake/items"
	"move-quote-be/pkg/intake/options"
	"move-quote-be/pkg/intake/protocol"
	"move-quote-be/pkg/intake/session"
)

// IIntakeService runs the intake conversation of one connection. Every
// handler emits its outbound events through em, in order. Returned errors are
// either intake-typed (the caller turns them into an error event) or
// transport failures from em.
type IIntakeService interface {
	Open(ctx context.Context, em protocol.Emitter, token string) (*session.Session, error)
	Reset(ctx context.Context, em protocol.Emitter, s *session.Session) error
	HandleMessage(ctx context.Context, em protocol.Emitter, s *session.Session, content string) error
	HandleQuickOption(ctx context.Context, em protocol.Emitter, s *session.Session, content string) error
	HandleImageUploaded(ctx context.Context, em protocol.Emitter, s *session.Session, req *protocol.ImageUploaded) error
	HandleAddressSelected(ctx context.Context, em protocol.Emitter, s *session.Session, req *protocol.AddressSelected) error
	HandleAddressConfirmed(ctx context.Context, em protocol.Emitter, s *session.Session, req *protocol.AddressConfirmed) error
	HandleItemsConfirmed(ctx context.Context, em protocol.Emitter, s *session.Session, req *protocol.ItemsConfirmed) error
	HandleSubmitQuote(ctx context.Context, em protocol.Emitter, s *session.Session, req *protocol.SubmitQuote) error
}

// RecognitionLookup returns the stored detection result of an uploaded image.
type RecognitionLookup interface {
	Recognition(ctx context.Context, token, imageID string) ([]items.Item, error)
}

// QuoteSubmitter turns a complete session into a quote.
type QuoteSubmitter interface {
	SubmitForSession(ctx context.Context, s *session.Session, contact session.Contact) (*entity.Quote, error)
}

// SessionPersister hands a session snapshot to the persistence queue.
type SessionPersister interface {
	Persist(ctx context.Context, rec *entity.SessionRecord) error
}

// errStaleTurn marks results computed against a session that was reset
// while the collaborator call was running.
var errStaleTurn = errors.New("session was reset during the turn")

type intakeService struct {
	sessions    *session.Manager
	engine      engine.ConversationEngine
	resolver    address.Resolver
	options     *options.Resolver
	history     contract.HistoryRepository
	recognition RecognitionLookup
	quotes      QuoteSubmitter
	persister   SessionPersister
	cfg         config.IntakeConfig
	maxHistory  int
	logger      logger.ILogger
}

func NewIntakeService(
	sessions *session.Manager,
	eng engine.ConversationEngine,
	resolver address.Resolver,
	opts *options.Resolver,
	history contract.HistoryRepository,
	recognition RecognitionLookup,
	quotes QuoteSubmitter,
	persister SessionPersister,
	cfg *config.Config,
	log logger.ILogger,
) IIntakeService {
	ic := cfg.Intake
	if ic.CollaboratorTimeout <= 0 {
		ic.CollaboratorTimeout = 30 * time.Second
	}
	return &intakeService{
		sessions:    sessions,
		engine:      eng,
		resolver:    resolver,
		options:     opts,
		history:     history,
		recognition: recognition,
		quotes:      quotes,
		persister:   persister,
		cfg:         ic,
		maxHistory:  cfg.Session.MaxMessages,
		logger:      log,
	}
}

func (is *intakeService) Open(ctx context.Context, em protocol.Emitter, token string) (*session.Session, error) {
	s, resumed, err := is.sessions.Open(token)
	if err != nil {
		return nil, err
	}

	var proj session.Projection
	var rec *entity.SessionRecord
	if err := is.sessions.Do(s, func(tx *session.Tx) error {
		proj, rec = is.settle(tx)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := em.Emit(ctx, protocol.SessionEvent{SessionToken: s.Token, CurrentPhase: proj.Phase, Resumed: resumed}); err != nil {
		return s, err
	}

	if resumed {
		msgs, err := is.history.Recent(ctx, s.Token, is.maxHistory)
		if err != nil {
			is.logger.Warn("INTAKE", "Failed to load message history", map[string]interface{}{"error": err.Error()})
		}
		out := make([]protocol.HistoryMessage, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, protocol.HistoryMessage{Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt.UnixMilli()})
		}
		if err := em.Emit(ctx, protocol.MessageHistory{Messages: out}); err != nil {
			return s, err
		}
	} else {
		if err := is.emitText(ctx, em, constant.WelcomeMessage); err != nil {
			return s, err
		}
		is.remember(ctx, s.Token, "", constant.WelcomeMessage)
	}

	return s, is.finish(ctx, em, proj, rec)
}

func (is *intakeService) Reset(ctx context.Context, em protocol.Emitter, s *session.Session) error {
	var proj session.Projection
	var rec *entity.SessionRecord
	if err := is.sessions.Do(s, func(tx *session.Tx) error {
		tx.Reset()
		proj, rec = is.settle(tx)
		return nil
	}); err != nil {
		return err
	}
	if err := is.history.Clear(ctx, s.Token); err != nil {
		is.logger.Warn("INTAKE", "Failed to clear message history", map[string]interface{}{"error": err.Error()})
	}
	is.logger.Info("INTAKE", "Session reset", map[string]interface{}{"session_id": s.ID.String()})

	if err := em.Emit(ctx, protocol.SessionReset{SessionToken: s.Token, FieldsStatus: proj.Fields}); err != nil {
		return err
	}
	if err := is.emitText(ctx, em, constant.ResetGreeting); err != nil {
		return err
	}
	is.remember(ctx, s.Token, "", constant.ResetGreeting)
	return is.finish(ctx, em, proj, rec)
}

func (is *intakeService) HandleMessage(ctx context.Context, em protocol.Emitter, s *session.Session, content string) error {
	return is.runTurn(ctx, em, s, strings.TrimSpace(content))
}

// HandleQuickOption treats a tapped option as a message, with two shortcuts:
// options of a multi-select set accumulate until the flush option arrives,
// and the confirm option of the offered set confirms its field directly.
func (is *intakeService) HandleQuickOption(ctx context.Context, em protocol.Emitter, s *session.Session, content string) error {
	content = strings.TrimSpace(content)

	var (
		accumulated bool
		proj        session.Projection
		rec         *entity.SessionRecord
	)
	if err := is.sessions.Do(s, func(tx *session.Tx) error {
		offered := tx.UI().Offered
		switch {
		case offered.MultiSelect && is.options.IsFlush(content):
			picked := tx.UI().Flush()
			if picked == nil {
				picked = []string{}
			}
			if err := tx.Fields().ConfirmValue(field.SpecialNotes, picked); err != nil {
				return err
			}
			if len(picked) > 0 {
				content = constant.SpecialNotesPrefix + strings.Join(picked, "、")
			}

		case offered.MultiSelect && slices.Contains(offered.Options, content):
			tx.UI().Select(content)
			tx.MarkActivity()
			accumulated = true
			proj, rec = is.settle(tx)

		case offered.ConfirmOption != "" && content == offered.ConfirmOption && offered.Field != "":
			if err := tx.Fields().Confirm(offered.Field); err != nil {
				is.logger.Debug("INTAKE", "Confirm option without a value", map[string]interface{}{"field": string(offered.Field), "error": err.Error()})
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if accumulated {
		return is.finish(ctx, em, proj, rec)
	}
	return is.runTurn(ctx, em, s, content)
}

// runTurn is one conversational turn: extract, apply, resolve addresses,
// reply, then project. The session lock is only held around the state reads
// and writes, never across a collaborator call.
func (is *intakeService) runTurn(ctx context.Context, em protocol.Emitter, s *session.Session, content string) error {
	var (
		turn  engine.Turn
		epoch uint64
	)
	if err := is.sessions.Do(s, func(tx *session.Tx) error {
		snap := tx.Fields().Snapshot()
		turn = engine.Turn{
			Content: content,
			Phase:   tx.Phase(),
			Fields:  snap,
			Next:    field.NextPriority(snap),
			Items:   tx.Tray().Confirmed(),
		}
		epoch = tx.Epoch()
		return nil
	}); err != nil {
		return err
	}
	turn.History = is.recentHistory(ctx, s.Token)

	ectx, cancel := context.WithTimeout(ctx, is.cfg.CollaboratorTimeout)
	ext, err := is.engine.Extract(ectx, turn)
	cancel()
	if err != nil {
		is.logger.Warn("INTAKE", "Extraction failed", map[string]interface{}{"session_id": s.ID.String(), "error": err.Error()})
		if err := is.emitError(ctx, em, intakeerr.CollaboratorUnavailable("conversation engine", err)); err != nil {
			return err
		}
		return is.project(ctx, em, s)
	}

	var (
		tickets []address.Ticket
		raised  []error
	)
	err = is.sessions.Do(s, func(tx *session.Tx) error {
		if tx.Epoch() != epoch {
			return errStaleTurn
		}
		tx.MarkActivity()
		markAsked(tx)
		tickets, raised = is.apply(tx, ext)
		return nil
	})
	if errors.Is(err, errStaleTurn) {
		is.logger.Info("INTAKE", "Dropped extraction for a reset session", map[string]interface{}{"session_id": s.ID.String()})
		return nil
	}
	if err != nil {
		return err
	}

	for _, tk := range tickets {
		if err := is.resolve(ctx, s, epoch, tk); err != nil {
			if errors.Is(err, intakeerr.ErrInvalidSession) {
				return err
			}
			raised = append(raised, err)
		}
	}

	notices := make([]string, 0, len(raised))
	for _, e := range raised {
		_, msg := intakeerr.Describe(e)
		notices = append(notices, msg)
		if err := is.emitError(ctx, em, e); err != nil {
			return err
		}
	}

	var req engine.ReplyRequest
	if err := is.sessions.Do(s, func(tx *session.Tx) error {
		snap := tx.Fields().Snapshot()
		req = engine.ReplyRequest{Turn: turn, Fields: snap, Next: field.NextPriority(snap), Notices: notices}
		return nil
	}); err != nil {
		return err
	}

	reply, err := is.reply(ctx, em, req)
	if err != nil {
		return err
	}
	is.remember(ctx, s.Token, content, reply)

	return is.project(ctx, em, s)
}

// apply writes an extraction into the session. It returns the address
// resolutions to run and the typed errors raised on the way.
func (is *intakeService) apply(tx *session.Tx, ext engine.Extraction) ([]address.Ticket, []error) {
	var (
		tickets []address.Ticket
		raised  []error
	)

	for _, u := range ext.Updates {
		if err := tx.Fields().Set(u.Key, u.Status, u.Value); err != nil {
			is.logger.Debug("INTAKE", "Extracted update ignored", map[string]interface{}{"field": string(u.Key), "error": err.Error()})
		}
	}

	for _, r := range address.Roles {
		raw, ok := ext.Addresses[r]
		if !ok {
			continue
		}
		f := tx.Address(r)
		if f.Raw() == raw && f.State() != address.Idle {
			continue
		}
		if f.State() == address.Confirmed {
			if cur, ok := tx.Fields().Snapshot().Value(r.Field()).(field.AddressValue); ok && cur.Value == raw {
				continue
			}
			f = tx.RestartAddress(r)
		}
		tk, err := f.Submit(raw)
		if err != nil {
			if intakeerr.IsTyped(err) {
				raised = append(raised, err)
			}
			continue
		}
		tickets = append(tickets, tk)
	}

	if len(ext.Items) > 0 {
		if err := tx.Tray().Stage("", ext.Items); err != nil {
			raised = append(raised, err)
		} else {
			_ = tx.Fields().Set(field.Items, field.InProgress, nil)
		}
	}
	return tickets, raised
}

// resolve runs one address lookup outside the lock and reports back to the
// sub-flow that asked for it.
func (is *intakeService) resolve(ctx context.Context, s *session.Session, epoch uint64, tk address.Ticket) error {
	rctx, cancel := context.WithTimeout(ctx, is.cfg.CollaboratorTimeout)
	candidates, lookupErr := is.resolver.Resolve(rctx, tk.Raw)
	cancel()

	err := is.sessions.Do(s, func(tx *session.Tx) error {
		if tx.Epoch() != epoch {
			return errStaleTurn
		}
		f := tx.Address(tk.Role)
		if lookupErr != nil {
			if err := f.Fail(tk); err != nil {
				return err
			}
			return intakeerr.CollaboratorUnavailable("address resolver", lookupErr)
		}
		// The field only takes the raw text once the lookup found something.
		if err := f.Complete(tk, candidates); err != nil {
			return err
		}
		_ = tx.Fields().Set(tk.Role.Field(), field.InProgress, field.AddressValue{Value: tk.Raw})
		return nil
	})
	if errors.Is(err, errStaleTurn) || errors.Is(err, address.ErrStaleResolution) {
		is.logger.Info("INTAKE", "Dropped a late address resolution", map[string]interface{}{"session_id": s.ID.String(), "role": string(tk.Role)})
		return nil
	}
	if err != nil {
		is.logger.Warn("INTAKE", "Address resolution failed", map[string]interface{}{"role": string(tk.Role), "error": err.Error()})
	}
	return err
}

func (is *intakeService) HandleImageUploaded(ctx context.Context, em protocol.Emitter, s *session.Session, req *protocol.ImageUploaded) error {
	// The stored detection result wins over whatever the client echoes back.
	detected := req.Items
	if is.recognition != nil {
		lctx, cancel := context.WithTimeout(ctx, is.cfg.CollaboratorTimeout)
		found, err := is.recognition.Recognition(lctx, s.Token, req.ImageID)
		cancel()
		if err != nil {
			if intakeerr.IsTyped(err) {
				return err
			}
			return intakeerr.CollaboratorUnavailable("image store", err)
		}
		detected = found
	}

	var (
		ev   protocol.ItemsRecognized
		proj session.Projection
		rec  *entity.SessionRecord
	)
	if err := is.sessions.Do(s, func(tx *session.Tx) error {
		if err := tx.Tray().Stage(req.ImageID, detected); err != nil {
			return err
		}
		if tx.Tray().HasPending() {
			_ = tx.Fields().Set(field.Items, field.InProgress, nil)
		}
		tx.MarkActivity()
		ev = protocol.ItemsRecognized{
			ImageID:      req.ImageID,
			Items:        nonNilItems(tx.Tray().Pending()),
			CurrentItems: nonNilItems(tx.Tray().Confirmed()),
		}
		proj, rec = is.settle(tx)
		return nil
	}); err != nil {
		return err
	}

	if err := em.Emit(ctx, ev); err != nil {
		return err
	}
	text := constant.ItemsRecognizedMessage
	if len(ev.Items) == 0 {
		text = constant.NoItemsRecognizedMessage
	}
	if err := is.emitText(ctx, em, text); err != nil {
		return err
	}
	is.remember(ctx, s.Token, "", text)
	return is.finish(ctx, em, proj, rec)
}

func (is *intakeService) HandleAddressSelected(ctx context.Context, em protocol.Emitter, s *session.Session, req *protocol.AddressSelected) error {
	var (
		ev   protocol.AddressSelectedEvent
		text string
		proj session.Projection
		rec  *entity.SessionRecord
	)
	if err := is.sessions.Do(s, func(tx *session.Tx) error {
		f := tx.Address(req.AddressType)
		ev.AddressType = req.AddressType

		if req.RejectAll {
			if err := f.RejectAll(); err != nil {
				return intakeerr.Malformed(err)
			}
			ev.State = f.State()
			text = constant.AddressRejectedMessage
			proj, rec = is.settle(tx)
			return nil
		}

		idx, err := candidateIndex(f, req)
		if err != nil {
			return err
		}
		c, err := f.Select(idx)
		if err != nil {
			return intakeerr.Malformed(err)
		}
		ev.State = f.State()
		ev.Address = &c
		text = fmt.Sprintf(constant.AddressConfirmMessage, c.FormattedAddress)
		proj, rec = is.settle(tx)
		return nil
	}); err != nil {
		return err
	}

	if err := em.Emit(ctx, ev); err != nil {
		return err
	}
	if err := is.emitText(ctx, em, text); err != nil {
		return err
	}
	is.remember(ctx, s.Token, "", text)
	return is.finish(ctx, em, proj, rec)
}

func candidateIndex(f *address.Subflow, req *protocol.AddressSelected) (int, error) {
	switch {
	case req.Index != nil:
		return *req.Index, nil
	case req.Address != nil && req.Address.Index != nil:
		return *req.Address.Index, nil
	case req.Address != nil && req.Address.FormattedAddress != "":
		if i, ok := f.IndexOf(req.Address.FormattedAddress); ok {
			return i, nil
		}
		return 0, intakeerr.Malformed(fmt.Errorf("%w: %q", address.ErrCandidateIndex, req.Address.FormattedAddress))
	}
	return 0, intakeerr.Malformed(errors.New("address_selected needs an index, an address or reject_all"))
}

func (is *intakeService) HandleAddressConfirmed(ctx context.Context, em protocol.Emitter, s *session.Session, req *protocol.AddressConfirmed) error {
	var (
		ev   protocol.AddressConfirmedEvent
		text string
		proj session.Projection
		rec  *entity.SessionRecord
	)
	if err := is.sessions.Do(s, func(tx *session.Tx) error {
		c, err := tx.Address(req.AddressType).Confirm(req.Confirmed, tx.Fields())
		if err != nil {
			return intakeerr.Malformed(err)
		}
		ev = protocol.AddressConfirmedEvent{AddressType: req.AddressType, Confirmed: req.Confirmed}
		if req.Confirmed {
			ev.Address = &c
			text = fmt.Sprintf(constant.AddressConfirmedMessage, c.FormattedAddress)
			text = withFollowUp(text, tx.Fields().Snapshot())
		} else {
			text = constant.AddressDeclinedMessage
		}
		proj, rec = is.settle(tx)
		return nil
	}); err != nil {
		return err
	}

	if err := em.Emit(ctx, ev); err != nil {
		return err
	}
	if err := is.emitText(ctx, em, text); err != nil {
		return err
	}
	is.remember(ctx, s.Token, "", text)
	return is.finish(ctx, em, proj, rec)
}

func (is *intakeService) HandleItemsConfirmed(ctx context.Context, em protocol.Emitter, s *session.Session, req *protocol.ItemsConfirmed) error {
	var (
		ev   protocol.ItemsConfirmedEvent
		text string
		proj session.Projection
		rec  *entity.SessionRecord
	)
	// A nil list confirms the pending batch as staged.
	var picked []items.Item
	if req.Items != nil {
		sel := items.ValidateSelection(req.Items)
		if !sel.Valid() {
			return em.Emit(ctx, protocol.ItemsValidationError{Errors: sel.Errors})
		}
		picked = nonNilItems(sel.Items)
	}

	if err := is.sessions.Do(s, func(tx *session.Tx) error {
		confirmed := tx.Tray().Confirm(picked)
		if len(confirmed) > 0 {
			if err := tx.Fields().ConfirmValue(field.Items, confirmed); err != nil {
				return err
			}
		}
		tx.MarkActivity()
		tx.UI().Hint(session.HintItemsConfirmed)

		total := items.TotalCount(confirmed)
		ev = protocol.ItemsConfirmedEvent{Items: nonNilItems(confirmed), TotalCount: total}
		text = fmt.Sprintf(constant.ItemsConfirmedMessage, total)
		proj, rec = is.settle(tx)
		return nil
	}); err != nil {
		return err
	}

	if err := em.Emit(ctx, ev); err != nil {
		return err
	}
	if err := is.emitText(ctx, em, text); err != nil {
		return err
	}
	is.remember(ctx, s.Token, "", text)
	return is.finish(ctx, em, proj, rec)
}

func (is *intakeService) HandleSubmitQuote(ctx context.Context, em protocol.Emitter, s *session.Session, req *protocol.SubmitQuote) error {
	quote, err := is.quotes.SubmitForSession(ctx, s, session.Contact{Email: req.Email, Phone: req.Phone})
	if err != nil {
		if errors.Is(err, intakeerr.ErrInvalidSession) {
			return err
		}
		code, msg := intakeerr.Describe(err)
		if !intakeerr.IsTyped(err) {
			is.logger.Error("INTAKE", "Quote submission failed", map[string]interface{}{"session_id": s.ID.String(), "error": err.Error()})
			code, msg = intakeerr.CodeCollaboratorUnavailable, intakeerr.ErrCollaboratorUnavailable.Message
		}
		if err := em.Emit(ctx, protocol.QuoteError{Code: string(code), Message: msg, MissingFields: intakeerr.MissingFields(err)}); err != nil {
			return err
		}
		return is.project(ctx, em, s)
	}

	if err := em.Emit(ctx, protocol.QuoteSubmitted{QuoteID: quote.Id.String(), Message: constant.QuoteSubmittedMessage}); err != nil {
		return err
	}
	is.remember(ctx, s.Token, "", constant.QuoteSubmittedMessage)
	return is.project(ctx, em, s)
}

// settle runs at the end of every mutation. It recomputes the projection and
// remembers which field the reply is asking about.
func (is *intakeService) settle(tx *session.Tx) (session.Projection, *entity.SessionRecord) {
	proj := tx.Present(is.options)
	tx.UI().Asking = proj.Completion.NextPriorityField
	rec := &entity.SessionRecord{
		SessionId:      tx.ID(),
		SessionToken:   tx.Token(),
		CurrentPhase:   int(proj.Phase),
		FieldsStatus:   proj.Fields,
		ItemsCount:     items.TotalCount(tx.Tray().Confirmed()),
		CompletionRate: proj.Completion.CompletionRate,
		LastActivityAt: tx.LastActivityAt(),
	}
	return proj, rec
}

// markAsked moves the field asked about last turn to asked once the user has
// replied, so an unanswered optional field stops blocking the flow.
func markAsked(tx *session.Tx) {
	k := tx.UI().Asking
	if k == "" {
		return
	}
	if rec, ok := tx.Fields().Get(k); ok && rec.Status == field.NotCollected {
		_ = tx.Fields().Set(k, field.Asked, nil)
	}
}

// project settles the session and emits the resulting metadata.
func (is *intakeService) project(ctx context.Context, em protocol.Emitter, s *session.Session) error {
	var proj session.Projection
	var rec *entity.SessionRecord
	if err := is.sessions.Do(s, func(tx *session.Tx) error {
		proj, rec = is.settle(tx)
		return nil
	}); err != nil {
		return err
	}
	return is.finish(ctx, em, proj, rec)
}

func (is *intakeService) finish(ctx context.Context, em protocol.Emitter, proj session.Projection, rec *entity.SessionRecord) error {
	if err := em.Emit(ctx, metadataFrom(proj)); err != nil {
		return err
	}
	if is.persister != nil && rec != nil {
		if err := is.persister.Persist(ctx, rec); err != nil {
			is.logger.Warn("INTAKE", "Failed to queue session snapshot", map[string]interface{}{"session_id": rec.SessionId.String(), "error": err.Error()})
		}
	}
	return nil
}

func metadataFrom(p session.Projection) protocol.Metadata {
	ph := p.Phase
	opts := p.Options.Options
	if opts == nil {
		opts = []string{}
	}
	ui := p.UI
	completion := p.Completion
	return protocol.Metadata{
		CurrentPhase: &ph,
		FieldsStatus: p.Fields,
		QuickOptions: &opts,
		MultiSelect:  p.Options.MultiSelect,
		UIComponent:  &ui,
		Completion:   &completion,
	}
}

// reply streams the assistant's answer. When the engine is unavailable the
// default question for the next field is streamed instead, so every turn
// still ends with exactly one text_done.
func (is *intakeService) reply(ctx context.Context, em protocol.Emitter, req engine.ReplyRequest) (string, error) {
	rctx, cancel := context.WithTimeout(ctx, is.cfg.CollaboratorTimeout)
	defer cancel()

	var sb strings.Builder
	stream, err := is.engine.Reply(rctx, req)
	if err == nil {
		defer stream.Close()
		for {
			chunk, rerr := stream.Recv()
			if errors.Is(rerr, io.EOF) {
				break
			}
			if rerr != nil {
				err = rerr
				break
			}
			if chunk == "" {
				continue
			}
			sb.WriteString(chunk)
			if err := em.Emit(ctx, protocol.TextDelta{Content: chunk}); err != nil {
				return "", err
			}
		}
	}

	if err != nil {
		is.logger.Warn("INTAKE", "Reply stream failed, using fallback text", map[string]interface{}{"error": err.Error()})
		if sb.Len() == 0 {
			fallback := fallbackReply(req)
			sb.WriteString(fallback)
			if err := is.streamText(ctx, em, fallback); err != nil {
				return "", err
			}
		}
	}

	if err := em.Emit(ctx, protocol.TextDone{}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func fallbackReply(req engine.ReplyRequest) string {
	parts := slices.Clone(req.Notices)
	switch {
	case req.Next != "":
		parts = append(parts, constant.FieldQuestions[string(req.Next)])
	case len(parts) == 0:
		parts = append(parts, constant.AllCollectedMessage)
	}
	if len(parts) == 0 {
		return constant.ReplyFallbackMessage
	}
	return strings.Join(parts, "\n")
}

func withFollowUp(text string, snap field.Snapshot) string {
	if next := field.NextPriority(snap); next != "" {
		return text + "\n\n" + constant.FieldQuestions[string(next)]
	}
	return text + "\n\n" + constant.AllCollectedMessage
}

// emitText streams fixed text followed by text_done.
func (is *intakeService) emitText(ctx context.Context, em protocol.Emitter, text string) error {
	if err := is.streamText(ctx, em, text); err != nil {
		return err
	}
	return em.Emit(ctx, protocol.TextDone{})
}

func (is *intakeService) streamText(ctx context.Context, em protocol.Emitter, text string) error {
	stream := engine.TextStream(text, is.cfg.ReplyChunkRunes)
	defer stream.Close()
	for {
		chunk, err := stream.Recv()
		if err != nil {
			return nil
		}
		if err := em.Emit(ctx, protocol.TextDelta{Content: chunk}); err != nil {
			return err
		}
	}
}

func (is *intakeService) emitError(ctx context.Context, em protocol.Emitter, err error) error {
	code, msg := intakeerr.Describe(err)
	return em.Emit(ctx, protocol.ErrorEvent{Code: string(code), Message: msg})
}

func (is *intakeService) recentHistory(ctx context.Context, token string) []engine.HistoryMessage {
	msgs, err := is.history.Recent(ctx, token, is.maxHistory)
	if err != nil {
		is.logger.Warn("INTAKE", "Failed to load message history", map[string]interface{}{"error": err.Error()})
		return nil
	}
	out := make([]engine.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, engine.HistoryMessage{Role: engine.Role(m.Role), Content: m.Content})
	}
	return out
}

// remember appends the turn's user and assistant lines to the transcript.
// Either side may be empty.
func (is *intakeService) remember(ctx context.Context, token, user, assistant string) {
	now := time.Now()
	var msgs []entity.HistoryMessage
	if user != "" {
		msgs = append(msgs, entity.HistoryMessage{Role: string(engine.RoleUser), Content: user, CreatedAt: now})
	}
	if assistant != "" {
		msgs = append(msgs, entity.HistoryMessage{Role: string(engine.RoleAssistant), Content: assistant, CreatedAt: now})
	}
	if len(msgs) == 0 {
		return
	}
	if err := is.history.Append(ctx, token, msgs...); err != nil {
		is.logger.Warn("INTAKE", "Failed to append message history", map[string]interface{}{"error": err.Error()})
	}
}

func nonNilItems(list []items.Item) []items.Item {
	if list == nil {
		return []items.Item{}
	}
	return list
}
