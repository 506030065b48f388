package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Evidence references an uploaded proof of payment
type Evidence struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Name     string `json:"name"`
}

// IsPDF returns true for PDF evidence
func (e *Evidence) IsPDF() bool {
	return e != nil && baseMimeType(e.MimeType) == "application/pdf"
}

// IsImage returns true for any image/* evidence
func (e *Evidence) IsImage() bool {
	return e != nil && strings.HasPrefix(baseMimeType(e.MimeType), "image/")
}

// baseMimeType strips parameters such as "; charset=utf-8"
func baseMimeType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// PaymentClaim is an assertion by one party that a payment toward a bill was made.
// Only State, VerifiedBy, VerifierRole and VerifiedAt ever change after creation.
type PaymentClaim struct {
	ID           string          `json:"id"`
	BillID       string          `json:"bill_id"`
	Amount       decimal.Decimal `json:"amount"`
	PaidBy       Party           `json:"paid_by"`
	SubmittedBy  string          `json:"submitted_by"`
	Remarks      string          `json:"remarks,omitempty"`
	Evidence     *Evidence       `json:"evidence,omitempty"`
	State        ClaimState      `json:"state"`
	SubmittedAt  time.Time       `json:"submitted_at"`
	VerifiedBy   string          `json:"verified_by,omitempty"`
	VerifierRole Party           `json:"verifier_role,omitempty"`
	VerifiedAt   *time.Time      `json:"verified_at,omitempty"`
}

// IsPending returns true while the claim awaits verification
func (c *PaymentClaim) IsPending() bool {
	return c.State == ClaimStatePending
}

// IsVerified returns true once the counter-party confirmed the claim
func (c *PaymentClaim) IsVerified() bool {
	return c.State == ClaimStateVerified
}
