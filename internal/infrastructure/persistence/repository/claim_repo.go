package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/infrastructure/persistence/sqlite"
)

const claimColumns = `id, bill_id, amount, paid_by, submitted_by, remarks,
	evidence_url, evidence_mime_type, evidence_name,
	state, submitted_at, verified_by, verifier_role, verified_at`

// ClaimRepository implements port.ClaimRepository.
// Claims are never deleted; only the verification columns are ever updated.
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new payment claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a claim to its bill's ledger
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.PaymentClaim) error {
	query := `INSERT INTO payment_claims (` + claimColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var evidenceURL, evidenceMime, evidenceName sql.NullString
	if claim.Evidence != nil {
		evidenceURL = sql.NullString{String: claim.Evidence.URL, Valid: true}
		evidenceMime = sql.NullString{String: claim.Evidence.MimeType, Valid: true}
		evidenceName = sql.NullString{String: claim.Evidence.Name, Valid: true}
	}

	var verifiedBy, verifierRole sql.NullString
	if claim.VerifiedBy != "" {
		verifiedBy = sql.NullString{String: claim.VerifiedBy, Valid: true}
	}
	if claim.VerifierRole != "" {
		verifierRole = sql.NullString{String: string(claim.VerifierRole), Valid: true}
	}

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		claim.ID,
		claim.BillID,
		claim.Amount.String(),
		string(claim.PaidBy),
		claim.SubmittedBy,
		claim.Remarks,
		evidenceURL,
		evidenceMime,
		evidenceName,
		string(claim.State),
		claim.SubmittedAt.UTC(),
		verifiedBy,
		verifierRole,
		nullTime(claim.VerifiedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create payment claim",
			zap.String("claim_id", claim.ID),
			zap.String("bill_id", claim.BillID),
			zap.Error(err))
		return fmt.Errorf("failed to create payment claim: %w", err)
	}

	return nil
}

// GetByID retrieves a claim by its ID
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.PaymentClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM payment_claims WHERE id = ?`

	claim, err := scanClaim(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get payment claim by ID",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment claim: %w", err)
	}

	return claim, nil
}

// ListByBill returns a bill's claims in submission order
func (r *ClaimRepository) ListByBill(ctx context.Context, billID string) ([]*entity.PaymentClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM payment_claims
		WHERE bill_id = ?
		ORDER BY submitted_at, rowid`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, billID)
	if err != nil {
		r.logger.Error("Failed to list payment claims",
			zap.String("bill_id", billID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list payment claims: %w", err)
	}
	defer rows.Close()

	var claims []*entity.PaymentClaim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment claim: %w", err)
		}
		claims = append(claims, claim)
	}

	return claims, rows.Err()
}

// MarkVerified flips a pending claim to verified. Only one caller can win:
// it reports false when the claim is missing, belongs to another bill or is
// no longer pending.
func (r *ClaimRepository) MarkVerified(ctx context.Context, billID, claimID, verifierID string, verifierRole entity.Party, at time.Time) (bool, error) {
	query := `
		UPDATE payment_claims
		SET state = 'verified', verified_by = ?, verifier_role = ?, verified_at = ?
		WHERE id = ? AND bill_id = ? AND state = 'pending'
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		verifierID, string(verifierRole), at.UTC(), claimID, billID)
	if err != nil {
		r.logger.Error("Failed to verify payment claim",
			zap.String("claim_id", claimID),
			zap.String("bill_id", billID),
			zap.Error(err))
		return false, fmt.Errorf("failed to verify payment claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}

func scanClaim(s scanner) (*entity.PaymentClaim, error) {
	var claim entity.PaymentClaim
	var paidBy, state string
	var evidenceURL, evidenceMime, evidenceName sql.NullString
	var verifiedBy, verifierRole sql.NullString
	var verifiedAt sql.NullTime

	err := s.Scan(
		&claim.ID,
		&claim.BillID,
		&claim.Amount,
		&paidBy,
		&claim.SubmittedBy,
		&claim.Remarks,
		&evidenceURL,
		&evidenceMime,
		&evidenceName,
		&state,
		&claim.SubmittedAt,
		&verifiedBy,
		&verifierRole,
		&verifiedAt,
	)
	if err != nil {
		return nil, err
	}

	claim.PaidBy = entity.Party(paidBy)
	claim.State = entity.ClaimState(state)
	claim.VerifiedBy = verifiedBy.String
	claim.VerifierRole = entity.Party(verifierRole.String)
	claim.VerifiedAt = timePtr(verifiedAt)
	claim.SubmittedAt = claim.SubmittedAt.UTC()

	if evidenceURL.Valid {
		claim.Evidence = &entity.Evidence{
			URL:      evidenceURL.String,
			MimeType: evidenceMime.String,
			Name:     evidenceName.String,
		}
	}

	return &claim, nil
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
