package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSummary is derived on demand from a bill total and its claims
type PaymentSummary struct {
	BillID          string                `json:"bill_id"`
	Total           decimal.Decimal       `json:"total"`
	TotalPaid       decimal.Decimal       `json:"total_paid"`
	RemainingAmount decimal.Decimal       `json:"remaining_amount"`
	PendingClaims   []*PaymentClaim       `json:"pending_claims"`
	History         []PaymentHistoryEntry `json:"history"`
}

// IsSettled returns true when verified payments cover the bill total
func (s *PaymentSummary) IsSettled() bool {
	return s.RemainingAmount.IsZero()
}

// PaymentHistoryEntry is one verified claim with the balance left after it was applied
type PaymentHistoryEntry struct {
	ClaimID         string          `json:"claim_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaidBy          Party           `json:"paid_by"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	VerifiedBy      string          `json:"verified_by"`
	VerifiedAt      *time.Time      `json:"verified_at,omitempty"`
	Remarks         string          `json:"remarks,omitempty"`
	Evidence        *Evidence       `json:"evidence,omitempty"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

// EvidenceReview is an advisory reading of a claim's evidence.
// It never changes the claim or the bill.
type EvidenceReview struct {
	ID              string              `json:"id"`
	ClaimID         string              `json:"claim_id"`
	BillID          string              `json:"bill_id"`
	ExtractedAmount decimal.NullDecimal `json:"extracted_amount"`
	AmountMatches   bool                `json:"amount_matches"`
	Confidence      float64             `json:"confidence"`
	Notes           string              `json:"notes,omitempty"`
	Model           string              `json:"model"`
	CreatedAt       time.Time           `json:"created_at"`
}
