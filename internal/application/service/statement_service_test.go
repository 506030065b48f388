package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
)

type mockStatementWriter struct {
	gotSections *billing.SectionSummary
	gotPayments *entity.PaymentSummary
	err         error
}

func (m *mockStatementWriter) WriteStatement(bill *entity.Bill, sections *billing.SectionSummary, payments *entity.PaymentSummary) ([]byte, error) {
	m.gotSections = sections
	m.gotPayments = payments
	if m.err != nil {
		return nil, m.err
	}
	return []byte("xlsx"), nil
}

func (m *mockStatementWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func TestStatementService_ExportStatement(t *testing.T) {
	claims := &mockClaimRepo{}
	bills := newMockBillRepo(basicBill("bill-1"))
	ledger := NewLedgerService(bills, claims, &mockTxManager{}, nil, nil, &mockLogger{})
	billingSvc := NewBillingService(bills, claims, &mockTxManager{}, nil, nil, BillingOptions{}, &mockLogger{})

	bill, err := ledger.SubmitBillPaymentClaim(context.Background(), "bill-1", tenant, &billing.ClaimInput{Amount: d("1000")})
	require.NoError(t, err)
	_, err = ledger.VerifyBillPaymentClaim(context.Background(), "bill-1", bill.Claims[0].ID, owner, true)
	require.NoError(t, err)

	writer := &mockStatementWriter{}
	svc := NewStatementService(billingSvc, writer, &mockLogger{})

	statement, err := svc.ExportStatement(context.Background(), "bill-1", tenant)
	require.NoError(t, err)
	assert.Equal(t, "statement-bill-1.xlsx", statement.FileName)
	assert.Equal(t, []byte("xlsx"), statement.Content)
	assert.True(t, writer.gotSections.Total.Equal(d("1710")))
	assert.True(t, writer.gotPayments.RemainingAmount.Equal(d("710")))
}

func TestStatementService_Errors(t *testing.T) {
	bills := newMockBillRepo(basicBill("bill-1"))
	billingSvc := NewBillingService(bills, &mockClaimRepo{}, &mockTxManager{}, nil, nil, BillingOptions{}, &mockLogger{})

	svc := NewStatementService(billingSvc, &mockStatementWriter{}, &mockLogger{})
	_, err := svc.ExportStatement(context.Background(), "missing", owner)
	assert.ErrorIs(t, err, port.ErrBillNotFound)

	svc = NewStatementService(billingSvc, &mockStatementWriter{err: errors.New("boom")}, &mockLogger{})
	_, err = svc.ExportStatement(context.Background(), "bill-1", owner)
	assert.Error(t, err)
}
