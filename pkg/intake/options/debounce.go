package options

import "slices"

// Debouncer suppresses re-sending an option set identical to the last one
// that actually reached the client. One Debouncer belongs to one connection.
type Debouncer struct {
	last []string
	sent bool
}

// Changed reports whether next differs from the last sent set. A nil and an
// empty set are equal.
func (d *Debouncer) Changed(next []string) bool {
	if !d.sent {
		return true
	}
	return !slices.Equal(d.last, next)
}

// MarkSent records next as delivered.
func (d *Debouncer) MarkSent(next []string) {
	d.last = slices.Clone(next)
	d.sent = true
}

// Forget drops the remembered set, so the next computed set is always sent.
func (d *Debouncer) Forget() {
	d.last = nil
	d.sent = false
}
