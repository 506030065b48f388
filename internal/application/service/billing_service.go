package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
	"github.com/garyjia/rental-billing/internal/domain/workflow"
)

// BillingService manages bills and their lifecycle
type BillingService interface {
	CreateBill(ctx context.Context, actor entity.Actor, input *billing.BillInput) (*entity.Bill, error)
	GetBill(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error)
	ListBills(ctx context.Context, actor entity.Actor, filter port.BillFilter) ([]*entity.Bill, error)
	GetBillSectionSummary(ctx context.Context, billID string, actor entity.Actor) (*billing.SectionSummary, error)

	// MarkBillPaid settles a bill once verified claims cover its total.
	// Verification never does this on its own.
	MarkBillPaid(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error)
	// MarkBillOverdue moves a pending bill to overdue; used by the sweeper
	MarkBillOverdue(ctx context.Context, billID string) (*entity.Bill, error)
	// ListPastDue returns pending bills whose due date is before asOf
	ListPastDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Bill, error)
	CancelBill(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error)
}

// BillingOptions holds bill defaults
type BillingOptions struct {
	DefaultDueDays int
}

type billingServiceImpl struct {
	billRepo  port.BillRepository
	claimRepo port.ClaimRepository
	txManager port.TransactionManager
	publisher EventPublisher
	metrics   port.MetricsRecorder
	opts      BillingOptions
	logger    Logger
	clock     clock
}

// NewBillingService creates a new BillingService
func NewBillingService(
	billRepo port.BillRepository,
	claimRepo port.ClaimRepository,
	txManager port.TransactionManager,
	publisher EventPublisher,
	metrics port.MetricsRecorder,
	opts BillingOptions,
	logger Logger,
) BillingService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &billingServiceImpl{
		billRepo:  billRepo,
		claimRepo: claimRepo,
		txManager: txManager,
		publisher: publisher,
		metrics:   metrics,
		opts:      opts,
		logger:    logger,
	}
}

func (s *billingServiceImpl) CreateBill(ctx context.Context, actor entity.Actor, input *billing.BillInput) (*entity.Bill, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	if err := billing.ValidateBillInput(input); err != nil {
		return nil, err
	}

	now := s.clock.now()
	bill := &entity.Bill{
		ID:         uuid.NewString(),
		PropertyID: input.PropertyID,
		TenantID:   input.TenantID,
		TenantName: input.TenantName,
		Period:     input.Period,
		Breakdown:  input.Breakdown,
		Total:      billing.ComputeBillTotal(input.Breakdown),
		Status:     entity.BillStatusPending,
		DueDate:    input.DueDate,
		CreatedBy:  actor.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if bill.DueDate == nil && s.opts.DefaultDueDays > 0 {
		due := now.AddDate(0, 0, s.opts.DefaultDueDays)
		bill.DueDate = &due
	}

	if err := s.billRepo.Create(ctx, bill); err != nil {
		s.logger.Error("Failed to create bill", "error", err, "property_id", bill.PropertyID)
		return nil, fmt.Errorf("create bill: %w", err)
	}

	s.metrics.BillCreated()
	s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeBillCreated, bill.ID, actor.UserID, map[string]interface{}{
		event.KeyTenantID:   bill.TenantID,
		event.KeyTenantName: bill.TenantName,
		event.KeyPeriod:     bill.Period,
		event.KeyAmount:     bill.Total,
	}))

	s.logger.Info("Bill created",
		"bill_id", bill.ID,
		"property_id", bill.PropertyID,
		"total", bill.Total.String(),
	)
	return bill, nil
}

func (s *billingServiceImpl) GetBill(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error) {
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
	return bill, nil
}

func (s *billingServiceImpl) ListBills(ctx context.Context, actor entity.Actor, filter port.BillFilter) ([]*entity.Bill, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsOwner() {
		filter.TenantID = actor.UserID
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	bills, err := s.billRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list bills", "error", err)
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

func (s *billingServiceImpl) GetBillSectionSummary(ctx context.Context, billID string, actor entity.Actor) (*billing.SectionSummary, error) {
	bill, err := s.GetBill(ctx, billID, actor)
	if err != nil {
		return nil, err
	}
	return billing.GetBillSectionSummary(bill), nil
}

func (s *billingServiceImpl) MarkBillPaid(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, billID, actor.UserID, workflow.TriggerMarkPaid)
}

func (s *billingServiceImpl) MarkBillOverdue(ctx context.Context, billID string) (*entity.Bill, error) {
	return s.transition(ctx, billID, "", workflow.TriggerMarkOverdue)
}

func (s *billingServiceImpl) CancelBill(ctx context.Context, billID string, actor entity.Actor) (*entity.Bill, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, billID, actor.UserID, workflow.TriggerCancel)
}

// transition fires trigger on the bill machine and persists the result with a
// conditional status update
func (s *billingServiceImpl) transition(ctx context.Context, billID, actorID string, trigger workflow.Trigger) (*entity.Bill, error) {
	var (
		updated *entity.Bill
		from    entity.BillStatus
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		bill, err := loadBill(txCtx, s.billRepo, s.claimRepo, billID)
		if err != nil {
			return err
		}

		summary := billing.GetBillPaymentSummary(bill)
		machine, err := workflow.NewBillMachine(bill.Status, func(context.Context) bool {
			return summary.IsSettled()
		})
		if err != nil {
			return fmt.Errorf("bill %s: %w", bill.ID, err)
		}
		if err := machine.Fire(txCtx, trigger); err != nil {
			return transitionError(bill, trigger, err)
		}

		now := s.clock.now()
		from = bill.Status
		to := entity.BillStatus(machine.State())

		ok, err := s.billRepo.UpdateStatus(txCtx, bill.ID, from, to, now)
		if err != nil {
			return fmt.Errorf("update bill status: %w", err)
		}
		if !ok {
			return port.ErrStatusConflict
		}

		bill.Status = to
		bill.UpdatedAt = now
		if to == entity.BillStatusPaid {
			bill.PaidAt = &now
		}
		updated = bill
		return nil
	})
	if err != nil {
		s.logger.Error("Bill transition failed", "error", err, "bill_id", billID, "trigger", trigger)
		return nil, err
	}

	s.metrics.BillStatusChanged(updated.Status)
	s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeBillStatusChanged, updated.ID, actorID, map[string]interface{}{
		event.KeyFromStatus: string(from),
		event.KeyToStatus:   string(updated.Status),
		event.KeyTenantID:   updated.TenantID,
		event.KeyPeriod:     updated.Period,
	}))

	s.logger.Info("Bill status changed",
		"bill_id", updated.ID,
		"from", from,
		"to", updated.Status,
	)
	return updated, nil
}

func transitionError(bill *entity.Bill, trigger workflow.Trigger, err error) error {
	switch {
	case errors.Is(err, workflow.ErrGuardFailed):
		return port.ErrBillNotSettled
	case bill.IsCancelled():
		return fmt.Errorf("%w: %w", port.ErrBillCancelled, err)
	default:
		return fmt.Errorf("cannot %s a %s bill: %w", trigger, bill.Status, err)
	}
}

func (s *billingServiceImpl) ListPastDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Bill, error) {
	bills, err := s.billRepo.ListOverdueCandidates(ctx, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list past due bills: %w", err)
	}
	return bills, nil
}
