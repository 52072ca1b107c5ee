package items

import "unicode/utf8"

// Merge folds detected into existing. Entries sharing (name, category) collapse
// into one: counts add up and the longer non-empty note and localized name are
// kept. The order of first appearance is preserved and neither input is
// modified.
func Merge(existing, detected []Item) []Item {
	out := make([]Item, 0, len(existing)+len(detected))
	index := make(map[mergeKey]int, len(existing)+len(detected))

	add := func(it Item) {
		it = normalize(it)
		if it.Name == "" {
			return
		}
		k := it.key()
		if i, ok := index[k]; ok {
			cur := out[i]
			cur.Count += it.Count
			cur.Note = richer(cur.Note, it.Note)
			cur.LocalizedName = richer(cur.LocalizedName, it.LocalizedName)
			if cur.ID == "" {
				cur.ID = it.ID
			}
			if cur.SourceImageID == "" {
				cur.SourceImageID = it.SourceImageID
			}
			out[i] = cur
			return
		}
		index[k] = len(out)
		out = append(out, it)
	}

	for _, it := range existing {
		add(it)
	}
	for _, it := range detected {
		add(it)
	}
	return out
}

func normalize(it Item) Item {
	it.Name = it.key().name
	if it.Count < 1 {
		it.Count = 1
	}
	return it
}

// richer keeps a unless b is strictly longer.
func richer(a, b string) string {
	if utf8.RuneCountInString(b) > utf8.RuneCountInString(a) {
		return b
	}
	return a
}
