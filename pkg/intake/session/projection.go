package session

import (
	"move-quote-be/pkg/intake/address"
	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/items"
	"move-quote-be/pkg/intake/options"
	"move-quote-be/pkg/intake/phase"
)

const (
	UIAddressVerify  = "address_verify"
	UIItemEvaluation = "item_evaluation"
	UIConfirmCard    = "confirm_card"
	UILoginCard      = "login_card"
	UINone           = "none"

	HintItemsConfirmed = "items_confirmed"
	HintNeedPeriod     = "need_period"
	HintNeedTimeSlot   = "need_time_slot"

	loginCardMessage = "请输入联系方式以便搬家公司与您联系"
)

type UIComponent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type AddressVerifyData struct {
	AddressType address.Role        `json:"address_type"`
	State       address.State       `json:"state"`
	Raw         string              `json:"raw,omitempty"`
	Candidates  []address.Candidate `json:"candidates,omitempty"`
	Selected    *address.Candidate  `json:"selected,omitempty"`
}

type ItemEvaluationData struct {
	CurrentItems         []items.Item `json:"current_items"`
	PendingItems         []items.Item `json:"pending_items,omitempty"`
	PendingImageID       string       `json:"pending_image_id,omitempty"`
	CanUploadImage       bool         `json:"can_upload_image"`
	CanSelectFromCatalog bool         `json:"can_select_from_catalog"`
}

// ConfirmCardData is rebuilt from the field store on every call; it is never
// a separate source of truth.
type ConfirmCardData struct {
	Fields     field.Snapshot   `json:"fields"`
	Items      []items.Item     `json:"items"`
	Completion field.Completion `json:"completion"`
	Contact    Contact          `json:"contact"`
}

type LoginCardData struct {
	Message string `json:"message"`
}

// Projection is everything the client is told about the session after a
// turn.
type Projection struct {
	Phase      phase.Phase
	Fields     field.Snapshot
	Completion field.Completion
	Options    options.Result
	UI         UIComponent
}

// Present advances the phase and computes the client-facing projection. The
// offered option set is remembered so a later quick reply can be matched
// against it; one-turn hints are consumed.
func (tx *Tx) Present(r *options.Resolver) Projection {
	ph := tx.Advance()
	snap := tx.s.fields.Snapshot()
	completion := field.ComputeCompletion(snap)

	hints := append(tx.s.ui.hints, dateHints(snap)...)
	tx.s.ui.hints = nil

	offered := r.Resolve(options.Input{
		Phase:    ph,
		Fields:   snap,
		Next:     completion.NextPriorityField,
		Hints:    hints,
		Selected: tx.s.ui.Selected,
	})
	if !offered.MultiSelect {
		tx.s.ui.Selected = nil
	}
	tx.s.ui.Offered = offered

	return Projection{
		Phase:      ph,
		Fields:     snap,
		Completion: completion,
		Options:    offered,
		UI:         tx.uiComponent(ph, snap, completion),
	}
}

func (tx *Tx) uiComponent(ph phase.Phase, snap field.Snapshot, c field.Completion) UIComponent {
	for _, r := range address.Roles {
		f := tx.s.addresses[r]
		if !f.AwaitingUser() {
			continue
		}
		data := AddressVerifyData{
			AddressType: r,
			State:       f.State(),
			Raw:         f.Raw(),
			Candidates:  f.Candidates(),
		}
		if held, ok := f.Held(); ok {
			data.Selected = &held
		}
		return UIComponent{Type: UIAddressVerify, Data: data}
	}

	tray := tx.s.tray
	if tray.HasPending() || (ph == phase.Items && snap.Status(field.Items) != field.Baseline) {
		return UIComponent{Type: UIItemEvaluation, Data: ItemEvaluationData{
			CurrentItems:         tray.Confirmed(),
			PendingItems:         tray.Pending(),
			PendingImageID:       tray.PendingImage(),
			CanUploadImage:       !tray.HasPending(),
			CanSelectFromCatalog: true,
		}}
	}

	if ph == phase.Confirmation && c.CanSubmit {
		if !tx.s.contact.Known() {
			return UIComponent{Type: UILoginCard, Data: LoginCardData{Message: loginCardMessage}}
		}
		return UIComponent{Type: UIConfirmCard, Data: tx.ConfirmCard()}
	}
	return UIComponent{Type: UINone}
}

// ConfirmCard builds the aggregate confirmation view from current state.
func (tx *Tx) ConfirmCard() ConfirmCardData {
	snap := tx.s.fields.Snapshot()
	return ConfirmCardData{
		Fields:     snap,
		Items:      tx.s.tray.Confirmed(),
		Completion: field.ComputeCompletion(snap),
		Contact:    tx.s.contact,
	}
}

func dateHints(snap field.Snapshot) []string {
	if snap.Status(field.MoveDate) != field.InProgress {
		return nil
	}
	d, ok := snap.Value(field.MoveDate).(field.DateValue)
	if !ok || d.Month == 0 || d.Day != 0 {
		return nil
	}
	if d.Period == "" {
		return []string{HintNeedPeriod}
	}
	if d.TimeSlot == "" {
		return []string{HintNeedTimeSlot}
	}
	return nil
}
