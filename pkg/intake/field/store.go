package field

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownField     = errors.New("unknown field")
	ErrUnknownStatus    = errors.New("unknown field status")
	ErrConfirmRequired  = errors.New("baseline can only be reached through confirmation")
	ErrStatusRegression = errors.New("field status cannot move backwards")
	ErrNothingToConfirm = errors.New("field has no extracted value to confirm")
)

// Record is the state of one field. Values are replaced wholesale and never
// mutated in place, so a Record can be shared with readers.
type Record struct {
	Status    Status    `json:"status"`
	Value     any       `json:"value,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Snapshot is a point-in-time copy of every field record.
type Snapshot map[Key]Record

func (s Snapshot) Status(k Key) Status {
	if r, ok := s[k]; ok {
		return r.Status
	}
	return NotCollected
}

func (s Snapshot) Value(k Key) any { return s[k].Value }

// BuildingType returns the from-side building type, whatever its status.
func (s Snapshot) BuildingType() string {
	v, _ := s[FromBuildingType].Value.(string)
	return v
}

func (s Snapshot) Apartment() bool { return IsApartment(s.BuildingType()) }

// Untouched reports whether no field has moved past not_collected.
func (s Snapshot) Untouched() bool {
	for _, k := range Keys {
		if s.Status(k) != NotCollected {
			return false
		}
	}
	return true
}

// Store is the field store of a single session. It is not safe for
// concurrent use; the session serializes access.
type Store struct {
	records map[Key]Record
	now     func() time.Time
}

func NewStore() *Store {
	s := &Store{now: time.Now}
	s.Reset()
	return s
}

// Set records an extraction result. Baseline is refused here; use Confirm or
// ConfirmValue. Statuses only move forward.
func (s *Store) Set(key Key, status Status, value any) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, status)
	}
	if status == Baseline {
		return fmt.Errorf("%w: %s", ErrConfirmRequired, key)
	}
	cur := s.records[key]
	if status.rank() < cur.Status.rank() {
		return fmt.Errorf("%w: %s %s -> %s", ErrStatusRegression, key, cur.Status, status)
	}
	if value == nil {
		value = cur.Value
	}
	s.records[key] = Record{Status: status, Value: value, UpdatedAt: s.now()}
	return nil
}

// Confirm promotes the extracted value of key to baseline.
func (s *Store) Confirm(key Key) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	cur := s.records[key]
	switch cur.Status {
	case Baseline:
		return nil
	case InProgress:
		s.records[key] = Record{Status: Baseline, Value: cur.Value, UpdatedAt: s.now()}
		return nil
	}
	return fmt.Errorf("%w: %s is %s", ErrNothingToConfirm, key, cur.Status)
}

// ConfirmValue writes a user-confirmed value directly as baseline. It backs
// the confirm steps of sub-flows, where the user accepts a concrete value.
func (s *Store) ConfirmValue(key Key, value any) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	s.records[key] = Record{Status: Baseline, Value: value, UpdatedAt: s.now()}
	return nil
}

func (s *Store) Get(key Key) (Record, bool) {
	r, ok := s.records[key]
	return r, ok
}

func (s *Store) Snapshot() Snapshot {
	out := make(Snapshot, len(s.records))
	for k, r := range s.records {
		out[k] = r
	}
	return out
}

// Reset clears every record back to not_collected.
func (s *Store) Reset() {
	s.records = make(map[Key]Record, len(Keys))
	for _, k := range Keys {
		s.records[k] = Record{Status: NotCollected}
	}
}

func (s *Store) Completion() Completion { return ComputeCompletion(s.Snapshot()) }
