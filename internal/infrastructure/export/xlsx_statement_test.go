package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestXLSXStatementWriter_WriteStatement(t *testing.T) {
	at := func(h int) *time.Time {
		v := time.Date(2026, 1, 5, h, 0, 0, 0, time.UTC)
		return &v
	}
	bill := &entity.Bill{
		ID:         "bill-1",
		TenantName: "Asha",
		Period:     "January 2026",
		Status:     entity.BillStatusPending,
		Breakdown: entity.Breakdown{
			Rent:        entity.NewFixed(1000),
			Electricity: entity.NewMetered(100, 150, 12),
			Water:       entity.NewMetered(50, 60, 5),
			Internet:    entity.NewFixed(60),
			Others:      []entity.AdHocCharge{{Label: "Late fee", Amount: d("25")}},
		},
		Claims: []*entity.PaymentClaim{
			{ID: "c1", Amount: d("1000"), PaidBy: entity.PartyTenant, State: entity.ClaimStateVerified, SubmittedAt: *at(9), VerifiedBy: "owner-1", VerifiedAt: at(10)},
			{ID: "c2", Amount: d("300"), PaidBy: entity.PartyTenant, State: entity.ClaimStatePending, SubmittedAt: *at(11), Remarks: "cash"},
		},
	}
	bill.Total = billing.ComputeBillTotal(bill.Breakdown)
	sections := billing.GetBillSectionSummary(bill)
	payments := billing.GetBillPaymentSummary(bill)

	w := NewXLSXStatementWriter("NPR", zap.NewNop())
	content, err := w.WriteStatement(bill, sections, payments)
	require.NoError(t, err)
	assert.Contains(t, w.ContentType(), "spreadsheetml")

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetBill, SheetPayments}, f.GetSheetList())

	rows, err := f.GetRows(SheetBill)
	require.NoError(t, err)
	assert.Equal(t, "Rent statement", rows[0][0])

	values := map[string]string{}
	for _, r := range rows {
		if len(r) >= 7 && r[0] != "" {
			values[r[0]] = r[6]
		}
		if len(r) >= 7 && r[5] != "" {
			values[r[5]] = r[6]
		}
	}
	assert.Equal(t, "1,000.00", values["Rent"])
	assert.Equal(t, "600.00", values["Electricity"])
	assert.Equal(t, "25.00", values["Penalty"])
	assert.Equal(t, "1,735.00", values["Total"])
	assert.Equal(t, "1,000.00", values["Paid"])
	assert.Equal(t, "735.00", values["Remaining"])

	payRows, err := f.GetRows(SheetPayments)
	require.NoError(t, err)
	require.Len(t, payRows, 3)
	assert.Equal(t, "c1", payRows[1][0])
	assert.Equal(t, "verified", payRows[1][4])
	assert.Equal(t, "2026-01-05 10:00", payRows[1][6])
	assert.Equal(t, "c2", payRows[2][0])
	assert.Equal(t, "pending", payRows[2][4])
}
