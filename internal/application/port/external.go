package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
)

// Notification is a short text message for one side of a bill
type Notification struct {
	Party  entity.Party
	UserID string
	BillID string
	Text   string
}

// Notifier delivers notifications (Lark IM in production)
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// DocumentInspector reads PDF evidence
type DocumentInspector interface {
	PageCount(content []byte) (int, error)
	// RenderFirstPage returns the first page as a JPEG
	RenderFirstPage(content []byte) ([]byte, error)
}

// ReceiptReading is what a receipt reader could extract from evidence
type ReceiptReading struct {
	Amount     decimal.NullDecimal
	Confidence float64
	Notes      string
	Model      string
}

// ReceiptReader extracts the paid amount from a receipt image
type ReceiptReader interface {
	ReadReceipt(ctx context.Context, image []byte, mimeType string) (*ReceiptReading, error)
}

// StatementWriter renders a bill statement document
type StatementWriter interface {
	WriteStatement(bill *entity.Bill, sections *billing.SectionSummary, payments *entity.PaymentSummary) ([]byte, error)
	ContentType() string
}

// MetricsRecorder receives ledger and lifecycle measurements
type MetricsRecorder interface {
	ClaimSubmitted(payer entity.Party)
	ClaimVerified(payer entity.Party, amount decimal.Decimal)
	DoubleVerifyRejected()
	BillCreated()
	BillStatusChanged(to entity.BillStatus)
	EvidenceUploaded(mimeType string)
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) ClaimSubmitted(entity.Party)                 {}
func (NopMetrics) ClaimVerified(entity.Party, decimal.Decimal) {}
func (NopMetrics) DoubleVerifyRejected()                       {}
func (NopMetrics) BillCreated()                                {}
func (NopMetrics) BillStatusChanged(entity.BillStatus)         {}
func (NopMetrics) EvidenceUploaded(string)                     {}

var _ MetricsRecorder = NopMetrics{}
