package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
	"github.com/garyjia/rental-billing/internal/domain/workflow"
)

// LedgerService records payment claims against bills and their verification
// by the counter-party
type LedgerService interface {
	// SubmitBillPaymentClaim appends a pending claim and returns the bill with it
	SubmitBillPaymentClaim(ctx context.Context, billID string, actor entity.Actor, input *billing.ClaimInput) (*entity.Bill, error)
	// VerifyBillPaymentClaim moves a pending claim to verified. A claim is
	// verified at most once; later attempts fail with ErrClaimNotPending.
	VerifyBillPaymentClaim(ctx context.Context, billID, claimID string, verifier entity.Actor, approve bool) (*entity.Bill, error)
	GetBillPaymentSummary(ctx context.Context, billID string, actor entity.Actor) (*entity.PaymentSummary, error)
}

type ledgerServiceImpl struct {
	billRepo  port.BillRepository
	claimRepo port.ClaimRepository
	txManager port.TransactionManager
	publisher EventPublisher
	metrics   port.MetricsRecorder
	logger    Logger
	clock     clock
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	billRepo port.BillRepository,
	claimRepo port.ClaimRepository,
	txManager port.TransactionManager,
	publisher EventPublisher,
	metrics port.MetricsRecorder,
	logger Logger,
) LedgerService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &ledgerServiceImpl{
		billRepo:  billRepo,
		claimRepo: claimRepo,
		txManager: txManager,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *ledgerServiceImpl) SubmitBillPaymentClaim(ctx context.Context, billID string, actor entity.Actor, input *billing.ClaimInput) (*entity.Bill, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, &billing.ValidationError{Field: "claim", Message: billing.MsgClaimRequired}
	}
	// callers may only pay as themselves
	if input.Payer == "" {
		input.Payer = actor.Role
	}
	if input.Payer != actor.Role && input.Payer.IsValid() {
		return nil, fmt.Errorf("%w: cannot submit a claim as %s", port.ErrForbidden, input.Payer)
	}
	if err := billing.ValidateClaimInput(input); err != nil {
		return nil, err
	}

	claim := &entity.PaymentClaim{
		ID:          uuid.NewString(),
		BillID:      billID,
		Amount:      input.Amount,
		PaidBy:      input.Payer,
		SubmittedBy: actor.UserID,
		Remarks:     input.Remarks,
		Evidence:    input.Evidence,
		State:       entity.ClaimStatePending,
		SubmittedAt: s.clock.now(),
	}

	var updated *entity.Bill
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		bill, err := s.billRepo.GetByID(txCtx, billID)
		if err != nil {
			return fmt.Errorf("get bill: %w", err)
		}
		if bill == nil {
			return port.ErrBillNotFound
		}
		if bill.IsCancelled() {
			return port.ErrBillCancelled
		}
		if !canAccess(bill, actor) {
			return port.ErrForbidden
		}

		if err := s.claimRepo.Create(txCtx, claim); err != nil {
			return fmt.Errorf("create claim: %w", err)
		}

		updated, err = loadBill(txCtx, s.billRepo, s.claimRepo, billID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to submit payment claim", "error", err, "bill_id", billID)
		return nil, err
	}

	s.metrics.ClaimSubmitted(claim.PaidBy)

	payload := map[string]interface{}{
		event.KeyClaimID:   claim.ID,
		event.KeyAmount:    claim.Amount,
		event.KeyPaidBy:    string(claim.PaidBy),
		event.KeyActorName: actor.Name,
		event.KeyTenantID:  updated.TenantID,
		event.KeyPeriod:    updated.Period,
	}
	if claim.Evidence != nil {
		payload[event.KeyEvidence] = claim.Evidence.URL
		payload[event.KeyMimeType] = claim.Evidence.MimeType
	}
	s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeClaimSubmitted, billID, actor.UserID, payload))

	s.logger.Info("Payment claim submitted",
		"bill_id", billID,
		"claim_id", claim.ID,
		"amount", claim.Amount.String(),
		"paid_by", claim.PaidBy,
	)
	return updated, nil
}

func (s *ledgerServiceImpl) VerifyBillPaymentClaim(ctx context.Context, billID, claimID string, verifier entity.Actor, approve bool) (*entity.Bill, error) {
	if err := requireActor(verifier); err != nil {
		return nil, err
	}
	if !approve {
		return nil, port.ErrRejectNotSupported
	}

	var (
		updated *entity.Bill
		claim   *entity.PaymentClaim
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		bill, err := loadBill(txCtx, s.billRepo, s.claimRepo, billID)
		if err != nil {
			return err
		}
		if bill.IsCancelled() {
			return port.ErrBillCancelled
		}
		if !canAccess(bill, verifier) {
			return port.ErrForbidden
		}

		claim = bill.FindClaim(claimID)
		if claim == nil {
			return port.ErrClaimNotFound
		}
		if verifier.Role != claim.PaidBy.CounterParty() {
			return port.ErrNotCounterParty
		}

		machine, err := workflow.NewClaimMachine(claim.State)
		if err != nil {
			return fmt.Errorf("claim %s: %w", claim.ID, err)
		}
		if err := machine.Fire(txCtx, workflow.TriggerVerify); err != nil {
			if errors.Is(err, workflow.ErrInvalidTransition) {
				s.metrics.DoubleVerifyRejected()
				return fmt.Errorf("%w: claim is %s", port.ErrClaimNotPending, claim.State)
			}
			return err
		}

		// the conditional update is what stops two concurrent verifications
		ok, err := s.claimRepo.MarkVerified(txCtx, billID, claimID, verifier.UserID, verifier.Role, s.clock.now())
		if err != nil {
			return fmt.Errorf("mark claim verified: %w", err)
		}
		if !ok {
			s.metrics.DoubleVerifyRejected()
			return port.ErrClaimNotPending
		}

		updated, err = loadBill(txCtx, s.billRepo, s.claimRepo, billID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to verify payment claim", "error", err, "bill_id", billID, "claim_id", claimID)
		return nil, err
	}

	summary := billing.GetBillPaymentSummary(updated)
	s.metrics.ClaimVerified(claim.PaidBy, claim.Amount)
	s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeClaimVerified, billID, verifier.UserID, map[string]interface{}{
		event.KeyClaimID:   claimID,
		event.KeyAmount:    claim.Amount,
		event.KeyPaidBy:    string(claim.PaidBy),
		event.KeyRemaining: summary.RemainingAmount,
		event.KeyActorName: verifier.Name,
		event.KeyTenantID:  updated.TenantID,
		event.KeyPeriod:    updated.Period,
		event.KeySettled:   summary.IsSettled(),
	}))

	s.logger.Info("Payment claim verified",
		"bill_id", billID,
		"claim_id", claimID,
		"verified_by", verifier.UserID,
		"remaining", summary.RemainingAmount.String(),
	)
	return updated, nil
}

func (s *ledgerServiceImpl) GetBillPaymentSummary(ctx context.Context, billID string, actor entity.Actor) (*entity.PaymentSummary, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	bill, err := loadBill(ctx, s.billRepo, s.claimRepo, billID)
	if err != nil {
		return nil, err
	}
	if !canAccess(bill, actor) {
		return nil, port.ErrForbidden
	}
	return billing.GetBillPaymentSummary(bill), nil
}
