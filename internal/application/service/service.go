package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// EventPublisher hands events to side-effect handlers without waiting for them.
// dispatcher.Dispatcher satisfies it.
type EventPublisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

type nopPublisher struct{}

func (nopPublisher) DispatchAsync(context.Context, *event.Event) {}

// loadBill reads a bill together with its claims
func loadBill(ctx context.Context, bills port.BillRepository, claims port.ClaimRepository, billID string) (*entity.Bill, error) {
	bill, err := bills.GetByID(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	if bill == nil {
		return nil, port.ErrBillNotFound
	}

	list, err := claims.ListByBill(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	bill.Claims = list
	return bill, nil
}

// canAccess limits tenants to their own bills. Bills without a tenant id are
// shared with any tenant.
func canAccess(bill *entity.Bill, actor entity.Actor) bool {
	if actor.IsOwner() {
		return true
	}
	return bill.TenantID == "" || bill.TenantID == actor.UserID
}

func requireActor(actor entity.Actor) error {
	if !actor.IsValid() {
		return fmt.Errorf("%w: unknown actor", port.ErrForbidden)
	}
	return nil
}

func requireOwner(actor entity.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsOwner() {
		return fmt.Errorf("%w: owner only", port.ErrForbidden)
	}
	return nil
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}
