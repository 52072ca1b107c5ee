package session

import (
	"testing"

	"move-quote-be/pkg/intake/address"
	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/items"
	"move-quote-be/pkg/intake/options"
	"move-quote-be/pkg/intake/phase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func present(t *testing.T, m *Manager, s *Session, prep func(tx *Tx)) Projection {
	t.Helper()
	var p Projection
	require.NoError(t, m.Do(s, func(tx *Tx) error {
		if prep != nil {
			prep(tx)
		}
		p = tx.Present(options.Default())
		return nil
	}))
	return p
}

func fillRequired(t *testing.T, tx *Tx) {
	t.Helper()
	for _, k := range []field.Key{field.PeopleCount, field.FromAddress, field.ToAddress, field.MoveDate, field.Items} {
		require.NoError(t, tx.Fields().ConfirmValue(k, "x"))
	}
	require.NoError(t, tx.Fields().ConfirmValue(field.FromBuildingType, "戸建て"))
	for _, k := range []field.Key{field.ToFloorElevator, field.PackingService, field.SpecialNotes} {
		require.NoError(t, tx.Fields().Set(k, field.Asked, nil))
	}
}

func TestPresent_OpeningOptions(t *testing.T) {
	m := newTestManager()
	s, _ := m.Create()

	p := present(t, m, s, nil)
	assert.Equal(t, phase.Opening, p.Phase)
	assert.Equal(t, []string{"获取搬家报价", "咨询搬家问题", "了解服务内容"}, p.Options.Options)
	assert.Equal(t, UINone, p.UI.Type)
	assert.Equal(t, field.PeopleCount, p.Completion.NextPriorityField)
}

func TestPresent_AddressVerify(t *testing.T) {
	m := newTestManager()
	s, _ := m.Create()

	p := present(t, m, s, func(tx *Tx) {
		tk, err := tx.Address(address.To).Submit("大阪市")
		require.NoError(t, err)
		require.NoError(t, tx.Address(address.To).Complete(tk, []address.Candidate{
			{FormattedAddress: "大阪府大阪市北区"},
			{FormattedAddress: "大阪府大阪市中央区"},
		}))
	})

	require.Equal(t, UIAddressVerify, p.UI.Type)
	data := p.UI.Data.(AddressVerifyData)
	assert.Equal(t, address.To, data.AddressType)
	assert.Equal(t, address.Disambiguating, data.State)
	assert.Len(t, data.Candidates, 2)
	assert.Nil(t, data.Selected)
}

func TestPresent_ItemEvaluationWhilePending(t *testing.T) {
	m := newTestManager()
	s, _ := m.Create()

	p := present(t, m, s, func(tx *Tx) {
		require.NoError(t, tx.Tray().Stage("img-1", []items.Item{{Name: "Fan", Category: items.Appliances, Count: 1}}))
	})

	require.Equal(t, UIItemEvaluation, p.UI.Type)
	data := p.UI.Data.(ItemEvaluationData)
	assert.Len(t, data.PendingItems, 1)
	assert.False(t, data.CanUploadImage)
	assert.Equal(t, "img-1", data.PendingImageID)
}

func TestPresent_FinalCards(t *testing.T) {
	m := newTestManager()
	s, _ := m.Create()

	p := present(t, m, s, func(tx *Tx) { fillRequired(t, tx) })
	assert.Equal(t, phase.Confirmation, p.Phase)
	assert.True(t, p.Completion.CanSubmit)
	require.Equal(t, UILoginCard, p.UI.Type)
	assert.Equal(t, "请输入联系方式以便搬家公司与您联系", p.UI.Data.(LoginCardData).Message)
	assert.Equal(t, []string{"确认无误，提交报价", "需要修改"}, p.Options.Options)

	p = present(t, m, s, func(tx *Tx) { tx.Contact().Phone = "090-1234-5678" })
	require.Equal(t, UIConfirmCard, p.UI.Type)
	card := p.UI.Data.(ConfirmCardData)
	assert.Equal(t, field.Baseline, card.Fields.Status(field.PeopleCount))
	assert.Equal(t, "090-1234-5678", card.Contact.Phone)

	// the card follows the store, it is not a copy kept on the side
	require.NoError(t, m.Do(s, func(tx *Tx) error {
		require.NoError(t, tx.Fields().ConfirmValue(field.PackingService, "自己打包"))
		assert.Equal(t, field.Baseline, tx.ConfirmCard().Fields.Status(field.PackingService))
		return nil
	}))
}

func TestPresent_RemembersOfferedConfirmOption(t *testing.T) {
	m := newTestManager()
	s, _ := m.Create()

	p := present(t, m, s, func(tx *Tx) {
		require.NoError(t, tx.Fields().Set(field.PeopleCount, field.InProgress, 2))
	})
	assert.Equal(t, []string{"确认无误", "需要修改"}, p.Options.Options)

	require.NoError(t, m.Do(s, func(tx *Tx) error {
		assert.Equal(t, "确认无误", tx.UI().Offered.ConfirmOption)
		assert.Equal(t, field.PeopleCount, tx.UI().Offered.Field)
		return nil
	}))
}

func TestPresent_DateHints(t *testing.T) {
	m := newTestManager()
	s, _ := m.Create()

	p := present(t, m, s, func(tx *Tx) {
		for _, k := range []field.Key{field.PeopleCount, field.FromAddress, field.ToAddress} {
			require.NoError(t, tx.Fields().ConfirmValue(k, "x"))
		}
		require.NoError(t, tx.Fields().ConfirmValue(field.FromBuildingType, "戸建て"))
		require.NoError(t, tx.Fields().Set(field.MoveDate, field.InProgress, field.DateValue{Month: 5}))
	})
	assert.Equal(t, []string{"上旬", "中旬", "下旬"}, p.Options.Options)

	p = present(t, m, s, func(tx *Tx) {
		require.NoError(t, tx.Fields().Set(field.MoveDate, field.InProgress, field.DateValue{Month: 5, Period: "中旬"}))
	})
	assert.Equal(t, []string{"上午", "下午", "没有指定"}, p.Options.Options)
}

func TestPresent_HintsLastOneTurn(t *testing.T) {
	m := newTestManager()
	s, _ := m.Create()

	p := present(t, m, s, func(tx *Tx) {
		require.NoError(t, tx.Fields().Set(field.PeopleCount, field.Asked, nil))
		tx.UI().Hint(HintItemsConfirmed)
	})
	assert.Equal(t, []string{"继续添加", "没有其他行李了"}, p.Options.Options)

	p = present(t, m, s, nil)
	assert.Equal(t, []string{"单身", "2~3人", "4人以上"}, p.Options.Options)
}
