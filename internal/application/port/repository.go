package port

import (
	"context"
	"time"

	"github.com/garyjia/rental-billing/internal/domain/entity"
)

// BillFilter narrows ListBills. Zero values mean "any".
type BillFilter struct {
	PropertyID string
	TenantID   string
	Status     entity.BillStatus
	Limit      int
	Offset     int
}

// BillRepository defines persistence operations for Bill.
// Bills are returned without claims; ClaimRepository.ListByBill loads those.
type BillRepository interface {
	Create(ctx context.Context, bill *entity.Bill) error
	GetByID(ctx context.Context, id string) (*entity.Bill, error)
	List(ctx context.Context, filter BillFilter) ([]*entity.Bill, error)
	// UpdateStatus applies from -> to only if the stored status is still from.
	// Reports false when another writer got there first.
	UpdateStatus(ctx context.Context, id string, from, to entity.BillStatus, at time.Time) (bool, error)
	// ListOverdueCandidates returns pending bills whose due date is before asOf
	ListOverdueCandidates(ctx context.Context, asOf time.Time, limit int) ([]*entity.Bill, error)
}

// ClaimRepository defines persistence operations for PaymentClaim.
// Claims are append-only: nothing but MarkVerified ever updates a row.
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.PaymentClaim) error
	GetByID(ctx context.Context, id string) (*entity.PaymentClaim, error)
	// ListByBill returns a bill's claims in submission order
	ListByBill(ctx context.Context, billID string) ([]*entity.PaymentClaim, error)
	// MarkVerified flips a pending claim of billID to verified.
	// Reports false when the claim is not (or no longer) pending.
	MarkVerified(ctx context.Context, billID, claimID, verifierID string, verifierRole entity.Party, at time.Time) (bool, error)
}

// EvidenceReviewRepository stores advisory receipt readings
type EvidenceReviewRepository interface {
	Create(ctx context.Context, review *entity.EvidenceReview) error
	// GetByClaimID returns the latest review for a claim
	GetByClaimID(ctx context.Context, claimID string) (*entity.EvidenceReview, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
