package field

import "slices"

// Completion is a projection of a snapshot; it is never stored.
type Completion struct {
	CompletionRate    float64 `json:"completion_rate"`
	CanSubmit         bool    `json:"can_submit"`
	MissingFields     []Key   `json:"missing_fields"`
	NextPriorityField Key     `json:"next_priority_field,omitempty"`
}

var baseRequired = []Key{PeopleCount, FromAddress, ToAddress, FromBuildingType, MoveDate, Items}

// Required returns the fields the current branch of the conversation needs.
// Apartment-class buildings add the room type and the from-side floor details.
func Required(snap Snapshot) []Key {
	req := slices.Clone(baseRequired)
	if snap.Apartment() {
		req = append(req, FromRoomType, FromFloorElevator)
	}
	return req
}

func ComputeCompletion(snap Snapshot) Completion {
	req := Required(snap)

	missing := make([]Key, 0, len(req))
	for _, k := range Keys {
		if slices.Contains(req, k) && snap.Status(k) != Baseline {
			missing = append(missing, k)
		}
	}
	done := len(req) - len(missing)

	return Completion{
		CompletionRate:    float64(done) / float64(len(req)),
		CanSubmit:         len(missing) == 0,
		MissingFields:     missing,
		NextPriorityField: NextPriority(snap),
	}
}

// NextPriority returns the first field, in priority order, that still needs
// attention: required and not baseline, or optional and never asked.
// It returns "" when nothing is left.
func NextPriority(snap Snapshot) Key {
	req := Required(snap)
	for _, k := range Keys {
		st := snap.Status(k)
		if slices.Contains(req, k) {
			if st != Baseline {
				return k
			}
			continue
		}
		if k == FromRoomType || k == FromFloorElevator {
			// only asked about for apartment-class buildings
			continue
		}
		if !st.Settled() {
			return k
		}
	}
	return ""
}

func KeysToStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
