// Package phase derives the conversation phase from field completeness.
package phase

import (
	"fmt"

	"move-quote-be/pkg/intake/field"
)

type Phase int

const (
	Opening Phase = iota
	People
	Address
	Date
	Items
	Details
	Confirmation
)

func (p Phase) String() string {
	switch p {
	case Opening:
		return "opening"
	case People:
		return "people"
	case Address:
		return "address"
	case Date:
		return "date"
	case Items:
		return "items"
	case Details:
		return "details"
	case Confirmation:
		return "confirmation"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) Valid() bool { return p >= Opening && p <= Confirmation }

// Input is everything the controller looks at besides the fields themselves.
type Input struct {
	Fields field.Snapshot
	// AddressBusy is true while any address sub-flow is resolving or waiting
	// on the user.
	AddressBusy bool
	// ItemsPending is true while a recognition batch awaits confirmation.
	ItemsPending bool
	// Activity is true once the session has seen any sub-flow or tray use.
	Activity bool
}

// Done reports whether the required fields of p are settled.
func Done(p Phase, in Input) bool {
	f := in.Fields
	baseline := func(keys ...field.Key) bool {
		for _, k := range keys {
			if f.Status(k) != field.Baseline {
				return false
			}
		}
		return true
	}

	switch p {
	case Opening:
		return !f.Untouched() || in.Activity
	case People:
		return baseline(field.PeopleCount)
	case Address:
		if in.AddressBusy {
			return false
		}
		if !baseline(field.FromAddress, field.ToAddress, field.FromBuildingType) {
			return false
		}
		return !f.Apartment() || baseline(field.FromRoomType)
	case Date:
		return baseline(field.MoveDate)
	case Items:
		return !in.ItemsPending && baseline(field.Items)
	case Details:
		if f.Apartment() && !baseline(field.FromFloorElevator) {
			return false
		}
		for _, k := range []field.Key{field.ToFloorElevator, field.PackingService, field.SpecialNotes} {
			if !f.Status(k).Settled() {
				return false
			}
		}
		return true
	}
	return false
}

// Next scans forward from current and returns the first phase whose
// requirements are not yet met. It never goes below current.
func Next(current Phase, in Input) Phase {
	if current < Opening {
		current = Opening
	}
	for p := current; p < Confirmation; p++ {
		if !Done(p, in) {
			return p
		}
	}
	return Confirmation
}
