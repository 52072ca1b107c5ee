package items

import (
	"slices"
	"strings"

	"move-quote-be/pkg/intake/intakeerr"
)

// Tray holds a session's permanent item list and at most one provisional
// batch of detected items waiting for the user's confirmation.
type Tray struct {
	confirmed    []Item
	pending      []Item
	pendingImage string
	staged       bool
}

func NewTray() *Tray { return &Tray{} }

func (t *Tray) Confirmed() []Item { return slices.Clone(t.confirmed) }

func (t *Tray) Pending() []Item { return slices.Clone(t.pending) }

func (t *Tray) PendingImage() string { return t.pendingImage }

func (t *Tray) HasPending() bool { return t.staged }

// Stage parks a detection result for review. A second batch while one is
// still pending is refused so unconfirmed items are never dropped.
func (t *Tray) Stage(imageID string, detected []Item) error {
	if t.staged {
		return intakeerr.ErrRecognitionPending
	}
	batch := Merge(nil, detected)
	if len(batch) == 0 {
		return nil
	}
	for i := range batch {
		if batch[i].SourceImageID == "" {
			batch[i].SourceImageID = imageID
		}
	}
	t.pending = batch
	t.pendingImage = imageID
	t.staged = true
	return nil
}

// RemovePending drops one entry from the pending batch. The permanent list is
// untouched. Removing the last entry leaves an empty batch that still needs a
// confirm or discard.
func (t *Tray) RemovePending(name string, category Category) bool {
	k := mergeKey{name: strings.TrimSpace(name), category: category}
	for i, it := range t.pending {
		if it.key() == k {
			t.pending = slices.Delete(t.pending, i, i+1)
			return true
		}
	}
	return false
}

// UpdatePending replaces the count and note of a pending entry.
func (t *Tray) UpdatePending(edit Item) bool {
	k := normalize(edit).key()
	for i, it := range t.pending {
		if it.key() == k {
			edit = normalize(edit)
			t.pending[i].Count = edit.Count
			t.pending[i].Note = edit.Note
			return true
		}
	}
	return false
}

// Confirm commits items into the permanent list. A non-nil edited list
// replaces the pending batch first (the user's reviewed version); with no
// batch pending, edited is merged on its own. It returns the new permanent
// list.
func (t *Tray) Confirm(edited []Item) []Item {
	batch := t.pending
	if edited != nil {
		batch = edited
	}
	t.confirmed = Merge(t.confirmed, batch)
	t.Discard()
	return t.Confirmed()
}

// Discard drops the pending batch.
func (t *Tray) Discard() {
	t.pending = nil
	t.pendingImage = ""
	t.staged = false
}

func (t *Tray) Reset() {
	t.confirmed = nil
	t.Discard()
}
