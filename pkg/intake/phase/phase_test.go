package phase

import (
	"testing"

	"move-quote-be/pkg/intake/field"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(s *field.Store) Input { return Input{Fields: s.Snapshot()} }

func TestNext_PeopleCountNeedsBaseline(t *testing.T) {
	s := field.NewStore()
	assert.Equal(t, Opening, Next(Opening, input(s)))

	require.NoError(t, s.Set(field.PeopleCount, field.InProgress, 2))
	p := Next(Opening, input(s))
	assert.Equal(t, People, p, "extraction alone must not pass the people phase")

	require.NoError(t, s.Confirm(field.PeopleCount))
	assert.Equal(t, Address, Next(p, input(s)))
}

func TestNext_AddressWaitsForSubflow(t *testing.T) {
	s := field.NewStore()
	for _, k := range []field.Key{field.PeopleCount, field.FromAddress, field.ToAddress} {
		require.NoError(t, s.ConfirmValue(k, "x"))
	}
	require.NoError(t, s.ConfirmValue(field.FromBuildingType, "戸建て"))

	in := input(s)
	in.AddressBusy = true
	assert.Equal(t, Address, Next(People, in))

	in.AddressBusy = false
	assert.Equal(t, Date, Next(People, in))
}

func TestNext_ApartmentNeedsRoomType(t *testing.T) {
	s := field.NewStore()
	for _, k := range []field.Key{field.PeopleCount, field.FromAddress, field.ToAddress} {
		require.NoError(t, s.ConfirmValue(k, "x"))
	}
	require.NoError(t, s.ConfirmValue(field.FromBuildingType, "マンション"))
	assert.Equal(t, Address, Next(Opening, input(s)))

	require.NoError(t, s.ConfirmValue(field.FromRoomType, "2LDK"))
	assert.Equal(t, Date, Next(Opening, input(s)))
}

func TestNext_ItemsWaitForPendingBatch(t *testing.T) {
	s := field.NewStore()
	for _, k := range []field.Key{field.PeopleCount, field.FromAddress, field.ToAddress, field.MoveDate, field.Items} {
		require.NoError(t, s.ConfirmValue(k, "x"))
	}
	require.NoError(t, s.ConfirmValue(field.FromBuildingType, "戸建て"))

	in := input(s)
	in.ItemsPending = true
	assert.Equal(t, Items, Next(Opening, in))

	in.ItemsPending = false
	assert.Equal(t, Details, Next(Opening, in))
}

func TestNext_DetailsNeedOnlyAskedOptionals(t *testing.T) {
	s := field.NewStore()
	for _, k := range []field.Key{field.PeopleCount, field.FromAddress, field.ToAddress, field.MoveDate, field.Items} {
		require.NoError(t, s.ConfirmValue(k, "x"))
	}
	require.NoError(t, s.ConfirmValue(field.FromBuildingType, "戸建て"))
	require.NoError(t, s.Set(field.ToFloorElevator, field.Asked, nil))
	require.NoError(t, s.Set(field.PackingService, field.Skipped, nil))
	assert.Equal(t, Details, Next(Opening, input(s)))

	require.NoError(t, s.Set(field.SpecialNotes, field.Asked, nil))
	assert.Equal(t, Confirmation, Next(Opening, input(s)))
}

func TestNext_NeverMovesBackwards(t *testing.T) {
	s := field.NewStore()
	assert.Equal(t, Items, Next(Items, input(s)))
	assert.Equal(t, Confirmation, Next(Confirmation, input(s)))
	assert.Equal(t, Opening, Next(Phase(-2), input(s)))
}

func TestNext_ScansOnlyForward(t *testing.T) {
	s := field.NewStore()
	require.NoError(t, s.ConfirmValue(field.MoveDate, "x"))

	// people and address are still open, but a session already at the date
	// phase continues from there
	assert.Equal(t, Items, Next(Date, input(s)))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "opening", Opening.String())
	assert.Equal(t, "confirmation", Confirmation.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
	assert.False(t, Phase(9).Valid())
}
