// Package address implements the verification sub-flow that turns a free-text
// address into one confirmed candidate.
package address

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/intakeerr"
)

// MaxCandidates bounds how many resolver results a sub-flow keeps.
const MaxCandidates = 5

type Role string

const (
	From Role = "from"
	To   Role = "to"
)

var Roles = []Role{From, To}

func (r Role) Valid() bool { return r == From || r == To }

// Field is the field store key a role writes when confirmed.
func (r Role) Field() field.Key {
	if r == To {
		return field.ToAddress
	}
	return field.FromAddress
}

type State string

const (
	Idle           State = "idle"
	Resolving      State = "resolving"
	Disambiguating State = "disambiguating"
	Confirming     State = "confirming"
	Confirmed      State = "confirmed"
)

// Candidate is one resolver result. Raw keeps the provider payload and never
// leaves the sub-flow.
type Candidate struct {
	Index            int     `json:"index"`
	FormattedAddress string  `json:"formatted_address"`
	PostalCode       string  `json:"postal_code,omitempty"`
	Prefecture       string  `json:"prefecture,omitempty"`
	City             string  `json:"city,omitempty"`
	District         string  `json:"district,omitempty"`
	Lat              float64 `json:"lat,omitempty"`
	Lng              float64 `json:"lng,omitempty"`
	Raw              any     `json:"-"`
}

func (c Candidate) Value() field.AddressValue {
	return field.AddressValue{
		Value:      c.FormattedAddress,
		PostalCode: c.PostalCode,
		Prefecture: c.Prefecture,
		City:       c.City,
		District:   c.District,
		Lat:        c.Lat,
		Lng:        c.Lng,
	}
}

// Resolver looks up candidate addresses for free text.
type Resolver interface {
	Resolve(ctx context.Context, raw string) ([]Candidate, error)
}

var (
	ErrEmptyAddress      = errors.New("address text is empty")
	ErrSubflowClosed     = errors.New("address sub-flow already confirmed")
	ErrStaleResolution   = errors.New("resolution result belongs to a replaced sub-flow")
	ErrInvalidTransition = errors.New("invalid address sub-flow transition")
	ErrCandidateIndex    = errors.New("candidate index out of range")
)

// Ticket identifies one resolution request. Results are only accepted for the
// ticket the sub-flow is currently waiting on.
type Ticket struct {
	Role Role
	Raw  string
	seq  uint64
}

var ticketSeq atomic.Uint64

// Subflow is the state machine for one address role. It is not safe for
// concurrent use; the owning session serializes access.
type Subflow struct {
	role       Role
	state      State
	raw        string
	waiting    uint64
	candidates []Candidate
	held       *Candidate
}

func NewSubflow(role Role) *Subflow {
	return &Subflow{role: role, state: Idle}
}

func (f *Subflow) Role() Role   { return f.role }
func (f *Subflow) State() State { return f.state }
func (f *Subflow) Raw() string  { return f.raw }

func (f *Subflow) Candidates() []Candidate {
	return append([]Candidate(nil), f.candidates...)
}

// Held returns the candidate awaiting confirmation.
func (f *Subflow) Held() (Candidate, bool) {
	if f.held == nil {
		return Candidate{}, false
	}
	return *f.held, true
}

// Busy reports whether a resolution or a user decision is outstanding.
func (f *Subflow) Busy() bool {
	switch f.state {
	case Resolving, Disambiguating, Confirming:
		return true
	}
	return false
}

// AwaitingUser reports whether the client has to pick or confirm.
func (f *Subflow) AwaitingUser() bool {
	return f.state == Disambiguating || f.state == Confirming
}

// Submit starts a resolution. The caller runs the resolver outside the session
// lock and reports back with Complete or Fail.
func (f *Subflow) Submit(raw string) (Ticket, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ticket{}, ErrEmptyAddress
	}
	switch f.state {
	case Confirmed:
		return Ticket{}, ErrSubflowClosed
	case Idle:
	default:
		return Ticket{}, fmt.Errorf("%w: %s address is %s", intakeerr.ErrSubflowBusy, f.role, f.state)
	}
	t := Ticket{Role: f.role, Raw: raw, seq: ticketSeq.Add(1)}
	f.state = Resolving
	f.raw = raw
	f.waiting = t.seq
	return t, nil
}

func (f *Subflow) accepts(t Ticket) bool {
	return f.state == Resolving && t.seq != 0 && t.seq == f.waiting
}

// Complete applies resolver results. Zero candidates return the sub-flow to
// idle with ErrUnresolvedAddress; one goes straight to confirming; more go to
// disambiguating, keeping at most MaxCandidates.
func (f *Subflow) Complete(t Ticket, candidates []Candidate) error {
	if !f.accepts(t) {
		return ErrStaleResolution
	}
	f.waiting = 0
	switch len(candidates) {
	case 0:
		f.toIdle()
		return fmt.Errorf("%w: %q", intakeerr.ErrUnresolvedAddress, t.Raw)
	case 1:
		c := candidates[0]
		c.Index = 0
		f.candidates = []Candidate{c}
		f.held = &c
		f.state = Confirming
		return nil
	}
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	f.candidates = make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Index = i
		f.candidates[i] = c
	}
	f.held = nil
	f.state = Disambiguating
	return nil
}

// Fail abandons a resolution after a collaborator failure. Nothing is written.
func (f *Subflow) Fail(t Ticket) error {
	if !f.accepts(t) {
		return ErrStaleResolution
	}
	f.toIdle()
	return nil
}

// Select picks candidate i while disambiguating.
func (f *Subflow) Select(i int) (Candidate, error) {
	if f.state != Disambiguating {
		return Candidate{}, fmt.Errorf("%w: select while %s", ErrInvalidTransition, f.state)
	}
	if i < 0 || i >= len(f.candidates) {
		return Candidate{}, fmt.Errorf("%w: %d of %d", ErrCandidateIndex, i, len(f.candidates))
	}
	c := f.candidates[i]
	f.held = &c
	f.state = Confirming
	return c, nil
}

// RejectAll discards the candidate list. The raw text is not retried.
func (f *Subflow) RejectAll() error {
	if f.state != Disambiguating {
		return fmt.Errorf("%w: reject while %s", ErrInvalidTransition, f.state)
	}
	f.toIdle()
	return nil
}

// Confirm settles the held candidate. Accepting writes it to the store as the
// role's baseline address; declining drops it without touching the store.
func (f *Subflow) Confirm(accept bool, store *field.Store) (Candidate, error) {
	if f.state != Confirming || f.held == nil {
		return Candidate{}, fmt.Errorf("%w: confirm while %s", ErrInvalidTransition, f.state)
	}
	held := *f.held
	if !accept {
		f.toIdle()
		return held, nil
	}
	if err := store.ConfirmValue(f.role.Field(), held.Value()); err != nil {
		return Candidate{}, err
	}
	f.state = Confirmed
	f.candidates = nil
	return held, nil
}

func (f *Subflow) toIdle() {
	f.state = Idle
	f.waiting = 0
	f.candidates = nil
	f.held = nil
}

// IndexOf finds a candidate by its formatted address.
func (f *Subflow) IndexOf(formatted string) (int, bool) {
	formatted = strings.TrimSpace(formatted)
	for i, c := range f.candidates {
		if c.FormattedAddress == formatted {
			return i, true
		}
	}
	return -1, false
}
