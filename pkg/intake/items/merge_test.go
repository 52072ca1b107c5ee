package items

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing []Item
		detected []Item
		want     []Item
	}{
		{
			name:     "same key sums counts",
			existing: []Item{{Name: "Sofa", Category: "furniture", Count: 1}},
			detected: []Item{{Name: "Sofa", Category: "furniture", Count: 2}},
			want:     []Item{{Name: "Sofa", Category: "furniture", Count: 3}},
		},
		{
			name:     "same name different category stays apart",
			existing: []Item{{Name: "Lamp", Category: SmallItems, Count: 1}},
			detected: []Item{{Name: "Lamp", Category: Appliances, Count: 1}},
			want: []Item{
				{Name: "Lamp", Category: SmallItems, Count: 1},
				{Name: "Lamp", Category: Appliances, Count: 1},
			},
		},
		{
			name:     "longer note and localized name win",
			existing: []Item{{Name: "Bed", LocalizedName: "ベッド", Category: LargeFurniture, Count: 1, Note: "IKEA"}},
			detected: []Item{{Name: "Bed", LocalizedName: "シングルベッド", Category: LargeFurniture, Count: 1, Note: ""}},
			want:     []Item{{Name: "Bed", LocalizedName: "シングルベッド", Category: LargeFurniture, Count: 2, Note: "IKEA"}},
		},
		{
			name:     "count below one becomes one",
			detected: []Item{{Name: "Box", Category: SmallItems, Count: 0}},
			want:     []Item{{Name: "Box", Category: SmallItems, Count: 1}},
		},
		{
			name:     "duplicates within one batch collapse",
			detected: []Item{{Name: "Box", Category: SmallItems, Count: 2}, {Name: " Box ", Category: SmallItems, Count: 3}},
			want:     []Item{{Name: "Box", Category: SmallItems, Count: 5}},
		},
		{
			name:     "nameless entries are dropped",
			detected: []Item{{Name: "  ", Category: SmallItems, Count: 2}},
			want:     []Item{},
		},
		{
			name:     "order of first appearance is kept",
			existing: []Item{{Name: "Desk", Category: LargeFurniture, Count: 1}},
			detected: []Item{{Name: "Fan", Category: Appliances, Count: 1}, {Name: "Desk", Category: LargeFurniture, Count: 1}},
			want: []Item{
				{Name: "Desk", Category: LargeFurniture, Count: 2},
				{Name: "Fan", Category: Appliances, Count: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.existing, tt.detected)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	a := []Item{{Name: "Sofa", Category: LargeFurniture, Count: 1}, {Name: "Box", Category: SmallItems, Count: 4}}
	b := []Item{{Name: "Sofa", Category: LargeFurniture, Count: 2, Note: "leather"}, {Name: "TV", Category: Appliances}}

	ab := Merge(a, b)
	if diff := cmp.Diff(ab, Merge(ab, nil)); diff != "" {
		t.Errorf("merge(merge(A,B), empty) changed the list (-want +got):\n%s", diff)
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	a := []Item{{Name: "Sofa", Category: LargeFurniture, Count: 1}}
	b := []Item{{Name: "Sofa", Category: LargeFurniture, Count: 2}}

	Merge(a, b)

	assert.Equal(t, 1, a[0].Count)
	assert.Equal(t, 2, b[0].Count)
}
