package service

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
)

// ReviewService reads receipts attached to payment claims and keeps an
// advisory note of the amount found. It never touches claim state or totals.
type ReviewService interface {
	ReviewClaimEvidence(ctx context.Context, billID, claimID string) (*entity.EvidenceReview, error)
	GetEvidenceReview(ctx context.Context, billID, claimID string, actor entity.Actor) (*entity.EvidenceReview, error)
	// HandleClaimSubmitted is the dispatcher handler for claim.submitted
	HandleClaimSubmitted(ctx context.Context, evt *event.Event) error
}

type reviewServiceImpl struct {
	billRepo   port.BillRepository
	claimRepo  port.ClaimRepository
	reviewRepo port.EvidenceReviewRepository
	evidence   EvidenceService
	inspector  port.DocumentInspector
	reader     port.ReceiptReader
	logger     Logger
	clock      clock
}

// NewReviewService creates a new ReviewService
func NewReviewService(
	billRepo port.BillRepository,
	claimRepo port.ClaimRepository,
	reviewRepo port.EvidenceReviewRepository,
	evidence EvidenceService,
	inspector port.DocumentInspector,
	reader port.ReceiptReader,
	logger Logger,
) ReviewService {
	return &reviewServiceImpl{
		billRepo:   billRepo,
		claimRepo:  claimRepo,
		reviewRepo: reviewRepo,
		evidence:   evidence,
		inspector:  inspector,
		reader:     reader,
		logger:     logger,
	}
}

func (s *reviewServiceImpl) HandleClaimSubmitted(ctx context.Context, evt *event.Event) error {
	if evt.GetPayloadString(event.KeyEvidence) == "" {
		return nil
	}
	_, err := s.ReviewClaimEvidence(ctx, evt.BillID, evt.GetPayloadString(event.KeyClaimID))
	return err
}

func (s *reviewServiceImpl) ReviewClaimEvidence(ctx context.Context, billID, claimID string) (*entity.EvidenceReview, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("receipt reading is not configured")
	}

	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	if claim == nil || claim.BillID != billID {
		return nil, port.ErrClaimNotFound
	}
	if claim.Evidence == nil {
		return nil, port.ErrEvidenceNotFound
	}

	content, err := s.evidence.LoadEvidence(ctx, claim.Evidence)
	if err != nil {
		return nil, err
	}

	mimeType := claim.Evidence.MimeType
	if mimeType == "" {
		mimeType = mimetype.Detect(content).String()
	}
	image := content
	if (&entity.Evidence{MimeType: mimeType}).IsPDF() {
		if s.inspector == nil {
			return nil, fmt.Errorf("no document inspector for PDF evidence")
		}
		image, err = s.inspector.RenderFirstPage(content)
		if err != nil {
			return nil, fmt.Errorf("render evidence: %w", err)
		}
		mimeType = "image/jpeg"
	}

	reading, err := s.reader.ReadReceipt(ctx, image, mimeType)
	if err != nil {
		s.logger.Error("Receipt reading failed", "error", err, "claim_id", claimID)
		return nil, fmt.Errorf("read receipt: %w", err)
	}

	review := &entity.EvidenceReview{
		ID:              uuid.NewString(),
		ClaimID:         claim.ID,
		BillID:          billID,
		ExtractedAmount: reading.Amount,
		AmountMatches:   amountMatches(reading.Amount, claim.Amount),
		Confidence:      reading.Confidence,
		Notes:           reading.Notes,
		Model:           reading.Model,
		CreatedAt:       s.clock.now(),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}

	s.logger.Info("Evidence reviewed",
		"claim_id", claim.ID,
		"amount_matches", review.AmountMatches,
		"confidence", review.Confidence,
	)
	return review, nil
}

func (s *reviewServiceImpl) GetEvidenceReview(ctx context.Context, billID, claimID string, actor entity.Actor) (*entity.EvidenceReview, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	bill, err := s.billRepo.GetByID(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	if bill == nil {
		return nil, port.ErrBillNotFound
	}
	if !canAccess(bill, actor) {
		return nil, port.ErrForbidden
	}

	review, err := s.reviewRepo.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review == nil || review.BillID != billID {
		return nil, port.ErrReviewNotFound
	}
	return review, nil
}

func amountMatches(extracted decimal.NullDecimal, claimed decimal.Decimal) bool {
	return extracted.Valid && extracted.Decimal.Equal(claimed)
}
