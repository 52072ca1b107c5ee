// Package field holds the collectible fields of a move-quote session together
// with their collection status and value.
package field

import "slices"

type Key string

const (
	PeopleCount       Key = "people_count"
	FromAddress       Key = "from_address"
	FromBuildingType  Key = "from_building_type"
	FromRoomType      Key = "from_room_type"
	ToAddress         Key = "to_address"
	MoveDate          Key = "move_date"
	Items             Key = "items"
	FromFloorElevator Key = "from_floor_elevator"
	ToFloorElevator   Key = "to_floor_elevator"
	PackingService    Key = "packing_service"
	SpecialNotes      Key = "special_notes"
)

// Keys lists every field in priority order.
var Keys = []Key{
	PeopleCount,
	FromAddress,
	FromBuildingType,
	FromRoomType,
	ToAddress,
	MoveDate,
	Items,
	FromFloorElevator,
	ToFloorElevator,
	PackingService,
	SpecialNotes,
}

func (k Key) Valid() bool { return slices.Contains(Keys, k) }

type Status string

const (
	NotCollected Status = "not_collected"
	Asked        Status = "asked"
	InProgress   Status = "in_progress"
	Baseline     Status = "baseline"
	Skipped      Status = "skipped"
)

// rank orders statuses for the forward-only transition rule.
func (s Status) rank() int {
	switch s {
	case NotCollected:
		return 0
	case Asked:
		return 1
	case Skipped:
		return 2
	case InProgress:
		return 3
	case Baseline:
		return 4
	}
	return -1
}

func (s Status) Valid() bool { return s.rank() >= 0 }

// Settled reports whether the status counts as answered for optional fields.
func (s Status) Settled() bool { return s.rank() >= Asked.rank() }

// ApartmentTypes are building types that make room type and the from-side
// floor/elevator details mandatory.
var ApartmentTypes = []string{"マンション", "アパート", "タワーマンション", "団地", "ビル"}

func IsApartment(buildingType string) bool {
	return slices.Contains(ApartmentTypes, buildingType)
}

type AddressValue struct {
	Value      string  `json:"value"`
	PostalCode string  `json:"postal_code,omitempty"`
	Prefecture string  `json:"prefecture,omitempty"`
	City       string  `json:"city,omitempty"`
	District   string  `json:"district,omitempty"`
	Lat        float64 `json:"lat,omitempty"`
	Lng        float64 `json:"lng,omitempty"`
}

type DateValue struct {
	Value    string `json:"value,omitempty"`
	Year     int    `json:"year,omitempty"`
	Month    int    `json:"month,omitempty"`
	Day      int    `json:"day,omitempty"`
	Period   string `json:"period,omitempty"`
	TimeSlot string `json:"time_slot,omitempty"`
}

type FloorElevatorValue struct {
	Floor       *int  `json:"floor,omitempty"`
	HasElevator *bool `json:"has_elevator,omitempty"`
}
