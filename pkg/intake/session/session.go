// Package session owns the per-session intake state and serializes every
// mutation of it.
package session

import (
	"sync"
	"time"

	"move-quote-be/pkg/intake/address"
	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/items"
	"move-quote-be/pkg/intake/options"
	"move-quote-be/pkg/intake/phase"

	"github.com/google/uuid"
)

type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (c Contact) Known() bool { return c.Email != "" || c.Phone != "" }

// UIState is transient, client-facing bookkeeping. It never feeds the field
// store directly.
type UIState struct {
	Offered  options.Result
	Selected []string
	// Asking is the field the last reply asked about.
	Asking field.Key
	hints  []string
}

// Select records one multi-select choice.
func (u *UIState) Select(option string) {
	for _, s := range u.Selected {
		if s == option {
			return
		}
	}
	u.Selected = append(u.Selected, option)
}

// Flush returns the accumulated selections and clears them.
func (u *UIState) Flush() []string {
	out := u.Selected
	u.Selected = nil
	return out
}

// Hint adds a one-turn hint for the next option computation.
func (u *UIState) Hint(h string) { u.hints = append(u.hints, h) }

type Session struct {
	ID        uuid.UUID
	Token     string
	CreatedAt time.Time

	mu             sync.Mutex
	lastActivityAt time.Time
	epoch          uint64
	phase          phase.Phase
	fields         *field.Store
	addresses      map[address.Role]*address.Subflow
	tray           *items.Tray
	activity       bool
	ui             UIState
	contact        Contact
}

func newSession(id uuid.UUID, token string, now time.Time) *Session {
	s := &Session{
		ID:             id,
		Token:          token,
		CreatedAt:      now,
		lastActivityAt: now,
		fields:         field.NewStore(),
		tray:           items.NewTray(),
	}
	s.resetAddresses()
	return s
}

func (s *Session) resetAddresses() {
	s.addresses = make(map[address.Role]*address.Subflow, len(address.Roles))
	for _, r := range address.Roles {
		s.addresses[r] = address.NewSubflow(r)
	}
}

// Tx is the view of a session handed to a function running under its lock.
// It must not be retained after the function returns.
type Tx struct {
	s *Session
}

func (tx *Tx) ID() uuid.UUID             { return tx.s.ID }
func (tx *Tx) Token() string             { return tx.s.Token }
func (tx *Tx) Fields() *field.Store      { return tx.s.fields }
func (tx *Tx) Tray() *items.Tray         { return tx.s.tray }
func (tx *Tx) UI() *UIState              { return &tx.s.ui }
func (tx *Tx) Contact() *Contact         { return &tx.s.contact }
func (tx *Tx) Phase() phase.Phase        { return tx.s.phase }
func (tx *Tx) Epoch() uint64             { return tx.s.epoch }
func (tx *Tx) LastActivityAt() time.Time { return tx.s.lastActivityAt }

func (tx *Tx) Address(r address.Role) *address.Subflow {
	return tx.s.addresses[r]
}

// RestartAddress discards the sub-flow of role r and installs a fresh one.
// A confirmed sub-flow is never resumed; a new address needs a new instance.
func (tx *Tx) RestartAddress(r address.Role) *address.Subflow {
	f := address.NewSubflow(r)
	tx.s.addresses[r] = f
	tx.s.activity = true
	return f
}

// MarkActivity notes that the session has started, even if no field moved.
func (tx *Tx) MarkActivity() { tx.s.activity = true }

func (tx *Tx) PhaseInput() phase.Input {
	in := phase.Input{
		Fields:       tx.s.fields.Snapshot(),
		ItemsPending: tx.s.tray.HasPending(),
		Activity:     tx.s.activity || tx.s.tray.HasPending(),
	}
	for _, f := range tx.s.addresses {
		if f.Busy() {
			in.AddressBusy = true
		}
		if f.State() != address.Idle {
			in.Activity = true
		}
	}
	return in
}

// Advance recomputes the phase from the current state. The phase never
// decreases outside Reset.
func (tx *Tx) Advance() phase.Phase {
	tx.s.phase = phase.Next(tx.s.phase, tx.PhaseInput())
	return tx.s.phase
}

// Reset clears every field, both sub-flows, all items and the UI state. The
// epoch moves on so results of calls started before the reset are dropped.
func (tx *Tx) Reset() {
	s := tx.s
	s.fields.Reset()
	s.tray.Reset()
	s.resetAddresses()
	s.ui = UIState{}
	s.contact = Contact{}
	s.activity = false
	s.phase = phase.Opening
	s.epoch++
}
