package items

import (
	"testing"

	"move-quote-be/pkg/intake/intakeerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTray_StageAndConfirm(t *testing.T) {
	tray := NewTray()
	tray.Confirm([]Item{{Name: "Desk", Category: LargeFurniture, Count: 1}})

	require.NoError(t, tray.Stage("img-1", []Item{
		{Name: "Desk", Category: LargeFurniture, Count: 1},
		{Name: "Box", Category: SmallItems, Count: 3},
	}))
	assert.True(t, tray.HasPending())
	assert.Equal(t, "img-1", tray.PendingImage())
	assert.Len(t, tray.Confirmed(), 1, "staging must not touch the permanent list")

	for _, it := range tray.Pending() {
		assert.Equal(t, "img-1", it.SourceImageID)
	}

	got := tray.Confirm(nil)
	assert.False(t, tray.HasPending())
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, 5, TotalCount(got))
}

func TestTray_SecondBatchWhilePending(t *testing.T) {
	tray := NewTray()
	require.NoError(t, tray.Stage("img-1", []Item{{Name: "Box", Category: SmallItems, Count: 1}}))

	err := tray.Stage("img-2", []Item{{Name: "Fan", Category: Appliances, Count: 1}})
	assert.ErrorIs(t, err, intakeerr.ErrRecognitionPending)
	assert.Equal(t, "img-1", tray.PendingImage())
	assert.Len(t, tray.Pending(), 1)
}

func TestTray_EmptyDetectionStagesNothing(t *testing.T) {
	tray := NewTray()
	require.NoError(t, tray.Stage("img-1", nil))
	assert.False(t, tray.HasPending())
}

func TestTray_RemovePendingKeepsPermanentList(t *testing.T) {
	tray := NewTray()
	tray.Confirm([]Item{{Name: "Box", Category: SmallItems, Count: 2}})
	require.NoError(t, tray.Stage("img-1", []Item{
		{Name: "Box", Category: SmallItems, Count: 5},
		{Name: "Fan", Category: Appliances, Count: 1},
	}))

	assert.True(t, tray.RemovePending("Box", SmallItems))
	assert.False(t, tray.RemovePending("Box", SmallItems))

	assert.Equal(t, []Item{{Name: "Box", Category: SmallItems, Count: 2}}, tray.Confirmed())
	require.Len(t, tray.Pending(), 1)
	assert.Equal(t, "Fan", tray.Pending()[0].Name)

	// an emptied batch still blocks a new recognition until resolved
	assert.True(t, tray.RemovePending("Fan", Appliances))
	assert.True(t, tray.HasPending())
	tray.Discard()
	assert.False(t, tray.HasPending())
}

func TestTray_ConfirmEditedList(t *testing.T) {
	tray := NewTray()
	require.NoError(t, tray.Stage("img-1", []Item{{Name: "Box", Category: SmallItems, Count: 5}}))
	require.True(t, tray.UpdatePending(Item{Name: "Box", Category: SmallItems, Count: 8, Note: "books"}))
	assert.Equal(t, 8, tray.Pending()[0].Count)

	got := tray.Confirm([]Item{{Name: "Box", Category: SmallItems, Count: 6}})
	assert.Equal(t, []Item{{Name: "Box", Category: SmallItems, Count: 6}}, got)
}

func TestTray_Reset(t *testing.T) {
	tray := NewTray()
	tray.Confirm([]Item{{Name: "Box", Category: SmallItems, Count: 2}})
	require.NoError(t, tray.Stage("img-1", []Item{{Name: "Fan", Category: Appliances, Count: 1}}))

	tray.Reset()

	assert.Empty(t, tray.Confirmed())
	assert.Empty(t, tray.Pending())
	assert.False(t, tray.HasPending())
}
