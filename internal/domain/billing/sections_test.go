package billing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/rental-billing/internal/domain/entity"
)

func TestGetBillSectionSummary(t *testing.T) {
	b := sampleBreakdown()
	b.Others = []entity.AdHocCharge{
		{Label: "Parking", Amount: d("150")},
		{Label: "Previous Due", Amount: d("300")},
		{Label: "Late fee", Amount: d("50")},
	}
	bill := &entity.Bill{ID: "bill-1", Period: "January 2026", Breakdown: b, Total: ComputeBillTotal(b)}

	s := GetBillSectionSummary(bill)

	assert.Equal(t, entity.ChargeKindFixed, s.Rent.Kind)
	assert.True(t, s.Rent.Amount.Equal(d("1000")))
	assert.Nil(t, s.Rent.Usage)

	assert.Equal(t, entity.ChargeKindMetered, s.Electricity.Kind)
	assert.True(t, s.Electricity.Amount.Equal(d("600")))
	require.NotNil(t, s.Electricity.Usage)
	assert.True(t, s.Electricity.Usage.Units.Equal(d("50")))
	assert.True(t, s.Electricity.Usage.Rate.Equal(d("12")))

	assert.True(t, s.Water.Amount.Equal(d("50")))
	assert.True(t, s.Internet.Amount.Equal(d("60")))

	require.NotNil(t, s.Due)
	assert.True(t, s.Due.Amount.Equal(d("300")))
	require.NotNil(t, s.Penalty)
	assert.True(t, s.Penalty.Amount.Equal(d("50")))

	require.Len(t, s.Others, 1)
	assert.Equal(t, "Parking", s.Others[0].Label)

	assert.True(t, s.Total.Equal(d("2210")))
}

func TestGetBillSectionSummary_LegacyNumbersAndRecords(t *testing.T) {
	// sections stored as bare numbers and as usage records in the same breakdown
	raw := `{
		"rent": 1000,
		"electricity": {"previous_unit": 100, "current_unit": 150, "rate": 12},
		"water": "50",
		"internet": {"amount": 60}
	}`

	var b entity.Breakdown
	require.NoError(t, json.Unmarshal([]byte(raw), &b))

	bill := &entity.Bill{ID: "legacy", Breakdown: b, Total: ComputeBillTotal(b)}
	s := GetBillSectionSummary(bill)

	assert.Equal(t, entity.ChargeKindFixed, s.Water.Kind)
	assert.True(t, s.Water.Amount.Equal(d("50")))
	assert.Equal(t, entity.ChargeKindMetered, s.Electricity.Kind)
	assert.True(t, s.Electricity.Amount.Equal(d("600")))
	assert.True(t, s.Total.Equal(d("1710")))
	assert.Nil(t, s.Due)
	assert.Nil(t, s.Penalty)
	assert.Empty(t, s.Others)
}

func TestGetBillSectionSummary_MissingSections(t *testing.T) {
	bill := &entity.Bill{ID: "bill-2", Breakdown: entity.Breakdown{Rent: entity.NewFixed(700)}, Total: d("700")}

	s := GetBillSectionSummary(bill)

	assert.True(t, s.Electricity.Amount.IsZero())
	assert.Empty(t, s.Electricity.Kind)
	assert.True(t, s.Water.Amount.IsZero())
	assert.True(t, s.Total.Equal(d("700")))
}
