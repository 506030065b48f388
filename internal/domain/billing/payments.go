package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/rental-billing/internal/domain/entity"
)

// GetBillPaymentSummary derives paid, remaining, pending and history from the bill
// total and its claim list alone. The bill is not modified, so repeated calls on
// an unchanged bill return equal summaries.
func GetBillPaymentSummary(bill *entity.Bill) *entity.PaymentSummary {
	var verified, pending []*entity.PaymentClaim
	for _, c := range bill.Claims {
		switch c.State {
		case entity.ClaimStateVerified:
			verified = append(verified, c)
		case entity.ClaimStatePending:
			pending = append(pending, c)
		}
	}

	// apply verified claims in the order they were verified
	sort.SliceStable(verified, func(i, j int) bool {
		return verifiedAt(verified[i]).Before(verifiedAt(verified[j]))
	})

	totalPaid := decimal.Zero
	history := make([]entity.PaymentHistoryEntry, len(verified))
	for i, c := range verified {
		totalPaid = totalPaid.Add(c.Amount)
		history[len(verified)-1-i] = entity.PaymentHistoryEntry{
			ClaimID:         c.ID,
			Amount:          c.Amount,
			PaidBy:          c.PaidBy,
			SubmittedAt:     c.SubmittedAt,
			VerifiedBy:      c.VerifiedBy,
			VerifiedAt:      c.VerifiedAt,
			Remarks:         c.Remarks,
			Evidence:        c.Evidence,
			RemainingAmount: floorZero(bill.Total.Sub(totalPaid)),
		}
	}

	// most recent submission first; equal timestamps keep later inserts first
	ordered := make([]*entity.PaymentClaim, len(pending))
	for i, c := range pending {
		ordered[len(pending)-1-i] = c
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt.After(ordered[j].SubmittedAt)
	})

	return &entity.PaymentSummary{
		BillID:          bill.ID,
		Total:           bill.Total,
		TotalPaid:       totalPaid,
		RemainingAmount: floorZero(bill.Total.Sub(totalPaid)),
		PendingClaims:   ordered,
		History:         history,
	}
}

func verifiedAt(c *entity.PaymentClaim) time.Time {
	if c.VerifiedAt != nil {
		return *c.VerifiedAt
	}
	return c.SubmittedAt
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
