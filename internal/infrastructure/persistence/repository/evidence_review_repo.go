package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/infrastructure/persistence/sqlite"
)

// EvidenceReviewRepository implements port.EvidenceReviewRepository
type EvidenceReviewRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEvidenceReviewRepository creates a new evidence review repository
func NewEvidenceReviewRepository(db *sql.DB, logger *zap.Logger) port.EvidenceReviewRepository {
	return &EvidenceReviewRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a review
func (r *EvidenceReviewRepository) Create(ctx context.Context, review *entity.EvidenceReview) error {
	query := `
		INSERT INTO evidence_reviews (
			id, claim_id, bill_id, extracted_amount, amount_matches,
			confidence, notes, model, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var extracted sql.NullString
	if review.ExtractedAmount.Valid {
		extracted = sql.NullString{String: review.ExtractedAmount.Decimal.String(), Valid: true}
	}

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		review.ID,
		review.ClaimID,
		review.BillID,
		extracted,
		review.AmountMatches,
		review.Confidence,
		review.Notes,
		review.Model,
		review.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create evidence review",
			zap.String("claim_id", review.ClaimID),
			zap.Error(err))
		return fmt.Errorf("failed to create evidence review: %w", err)
	}

	return nil
}

// GetByClaimID returns the latest review of a claim
func (r *EvidenceReviewRepository) GetByClaimID(ctx context.Context, claimID string) (*entity.EvidenceReview, error) {
	query := `
		SELECT id, claim_id, bill_id, extracted_amount, amount_matches,
			confidence, notes, model, created_at
		FROM evidence_reviews
		WHERE claim_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`

	var review entity.EvidenceReview
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, claimID).Scan(
		&review.ID,
		&review.ClaimID,
		&review.BillID,
		&review.ExtractedAmount,
		&review.AmountMatches,
		&review.Confidence,
		&review.Notes,
		&review.Model,
		&review.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get evidence review",
			zap.String("claim_id", claimID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get evidence review: %w", err)
	}

	return &review, nil
}

// Verify interface compliance
var _ port.EvidenceReviewRepository = (*EvidenceReviewRepository)(nil)
