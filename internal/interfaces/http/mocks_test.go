package http

import (
	"context"
	"net/http"
	"time"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/application/service"
	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockBilling struct {
	createFunc   func(ctx context.Context, actor entity.Actor, input *billing.BillInput) (*entity.Bill, error)
	getFunc      func(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error)
	listFunc     func(ctx context.Context, actor entity.Actor, filter port.BillFilter) ([]*entity.Bill, error)
	sectionsFunc func(ctx context.Context, billID string, actor entity.Actor) (*billing.SectionSummary, error)
	paidFunc     func(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error)
	overdueFunc  func(ctx context.Context, billID string) (*entity.Bill, error)
	cancelFunc   func(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error)
}

func (m *mockBilling) CreateBill(ctx context.Context, actor entity.Actor, input *billing.BillInput) (*entity.Bill, error) {
	return m.createFunc(ctx, actor, input)
}

func (m *mockBilling) GetBill(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error) {
	if m.getFunc == nil {
		return &entity.Bill{ID: billID}, nil
	}
	return m.getFunc(ctx, billID, actor)
}

func (m *mockBilling) ListBills(ctx context.Context, actor entity.Actor, filter port.BillFilter) ([]*entity.Bill, error) {
	return m.listFunc(ctx, actor, filter)
}

func (m *mockBilling) GetBillSectionSummary(ctx context.Context, billID string, actor entity.Actor) (*billing.SectionSummary, error) {
	return m.sectionsFunc(ctx, billID, actor)
}

func (m *mockBilling) MarkBillPaid(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error) {
	return m.paidFunc(ctx, billID, actor)
}

func (m *mockBilling) MarkBillOverdue(ctx context.Context, billID string) (*entity.Bill, error) {
	return m.overdueFunc(ctx, billID)
}

func (m *mockBilling) ListPastDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Bill, error) {
	return nil, nil
}

func (m *mockBilling) CancelBill(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error) {
	return m.cancelFunc(ctx, billID, actor)
}

type mockLedger struct {
	submitFunc  func(ctx context.Context, billID string, actor entity.Actor, input *billing.ClaimInput) (*entity.Bill, error)
	verifyFunc  func(ctx context.Context, billID, claimID string, verifier entity.Actor, approve bool) (*entity.Bill, error)
	summaryFunc func(ctx context.Context, billID string, actor entity.Actor) (*entity.PaymentSummary, error)
}

func (m *mockLedger) SubmitBillPaymentClaim(ctx context.Context, billID string, actor entity.Actor, input *billing.ClaimInput) (*entity.Bill, error) {
	return m.submitFunc(ctx, billID, actor, input)
}

func (m *mockLedger) VerifyBillPaymentClaim(ctx context.Context, billID, claimID string, verifier entity.Actor, approve bool) (*entity.Bill, error) {
	return m.verifyFunc(ctx, billID, claimID, verifier, approve)
}

func (m *mockLedger) GetBillPaymentSummary(ctx context.Context, billID string, actor entity.Actor) (*entity.PaymentSummary, error) {
	return m.summaryFunc(ctx, billID, actor)
}

type mockEvidence struct {
	uploadFunc func(ctx context.Context, billID string, actor entity.Actor, fileName string, content []byte) (*entity.Evidence, error)
	openFunc   func(ctx context.Context, key string) ([]byte, string, error)
}

func (m *mockEvidence) UploadEvidence(ctx context.Context, billID string, actor entity.Actor, fileName string, content []byte) (*entity.Evidence, error) {
	return m.uploadFunc(ctx, billID, actor, fileName, content)
}

func (m *mockEvidence) OpenEvidence(ctx context.Context, key string) ([]byte, string, error) {
	return m.openFunc(ctx, key)
}

func (m *mockEvidence) LoadEvidence(ctx context.Context, evidence *entity.Evidence) ([]byte, error) {
	return nil, port.ErrEvidenceNotFound
}

type mockStatement struct {
	exportFunc func(ctx context.Context, billID string, actor entity.Actor) (*service.Statement, error)
}

func (m *mockStatement) ExportStatement(ctx context.Context, billID string, actor entity.Actor) (*service.Statement, error) {
	return m.exportFunc(ctx, billID, actor)
}

type mockReview struct {
	getFunc func(ctx context.Context, billID, claimID string, actor entity.Actor) (*entity.EvidenceReview, error)
}

func (m *mockReview) ReviewClaimEvidence(ctx context.Context, billID, claimID string) (*entity.EvidenceReview, error) {
	return nil, nil
}

func (m *mockReview) GetEvidenceReview(ctx context.Context, billID, claimID string, actor entity.Actor) (*entity.EvidenceReview, error) {
	return m.getFunc(ctx, billID, claimID, actor)
}

func (m *mockReview) HandleClaimSubmitted(ctx context.Context, evt *event.Event) error {
	return nil
}

type observation struct {
	method string
	route  string
	code   int
}

type mockMetrics struct {
	observed []observation
}

func (m *mockMetrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	m.observed = append(m.observed, observation{method, route, code})
}

func (m *mockMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
}
