package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/rental-billing/internal/application/dispatcher"
	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
)

// NotificationService turns billing events into messages for the other side
// of the bill. Delivery failures are logged by the dispatcher and never reach
// the ledger.
type NotificationService interface {
	HandleBillCreated(ctx context.Context, evt *event.Event) error
	HandleBillStatusChanged(ctx context.Context, evt *event.Event) error
	HandleClaimSubmitted(ctx context.Context, evt *event.Event) error
	HandleClaimVerified(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	notifier port.Notifier
	currency string
	logger   Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifier port.Notifier, currency string, logger Logger) NotificationService {
	return &notificationServiceImpl{
		notifier: notifier,
		currency: currency,
		logger:   logger,
	}
}

func (s *notificationServiceImpl) HandleBillCreated(ctx context.Context, evt *event.Event) error {
	text := fmt.Sprintf("New bill for %s: total %s.",
		evt.GetPayloadString(event.KeyPeriod),
		s.money(evt, event.KeyAmount),
	)
	return s.send(ctx, evt, entity.PartyTenant, evt.GetPayloadString(event.KeyTenantID), text)
}

func (s *notificationServiceImpl) HandleBillStatusChanged(ctx context.Context, evt *event.Event) error {
	text := fmt.Sprintf("Bill for %s is now %s.",
		evt.GetPayloadString(event.KeyPeriod),
		evt.GetPayloadString(event.KeyToStatus),
	)
	return s.send(ctx, evt, entity.PartyTenant, evt.GetPayloadString(event.KeyTenantID), text)
}

func (s *notificationServiceImpl) HandleClaimSubmitted(ctx context.Context, evt *event.Event) error {
	payer := entity.Party(evt.GetPayloadString(event.KeyPaidBy))
	who := evt.GetPayloadString(event.KeyActorName)
	if who == "" {
		who = "The " + string(payer)
	}

	text := fmt.Sprintf("%s submitted a payment of %s for %s. Please verify it.",
		who,
		s.money(evt, event.KeyAmount),
		evt.GetPayloadString(event.KeyPeriod),
	)
	return s.send(ctx, evt, payer.CounterParty(), s.receiverFor(evt, payer.CounterParty()), text)
}

func (s *notificationServiceImpl) HandleClaimVerified(ctx context.Context, evt *event.Event) error {
	payer := entity.Party(evt.GetPayloadString(event.KeyPaidBy))

	var b strings.Builder
	fmt.Fprintf(&b, "Your payment of %s for %s was verified. Remaining: %s.",
		s.money(evt, event.KeyAmount),
		evt.GetPayloadString(event.KeyPeriod),
		s.money(evt, event.KeyRemaining),
	)
	if evt.GetPayloadBool(event.KeySettled) {
		b.WriteString(" The bill is fully paid.")
	}
	return s.send(ctx, evt, payer, s.receiverFor(evt, payer), b.String())
}

// receiverFor knows the tenant's user id; owners are resolved by the notifier
func (s *notificationServiceImpl) receiverFor(evt *event.Event, party entity.Party) string {
	if party == entity.PartyTenant {
		return evt.GetPayloadString(event.KeyTenantID)
	}
	return ""
}

func (s *notificationServiceImpl) send(ctx context.Context, evt *event.Event, party entity.Party, userID, text string) error {
	if !party.IsValid() {
		return fmt.Errorf("no receiver for %s event", evt.Type)
	}

	err := s.notifier.Notify(ctx, port.Notification{
		Party:  party,
		UserID: userID,
		BillID: evt.BillID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("notify %s: %w", party, err)
	}

	s.logger.Info("Notification sent", "event_type", evt.Type, "bill_id", evt.BillID, "party", party)
	return nil
}

func (s *notificationServiceImpl) money(evt *event.Event, key string) string {
	amount := evt.GetPayloadDecimal(key).StringFixed(2)
	if s.currency == "" {
		return amount
	}
	return s.currency + " " + amount
}

// RegisterNotificationHandlers subscribes the notification handlers
func RegisterNotificationHandlers(d dispatcher.Dispatcher, svc NotificationService) {
	d.SubscribeNamed(event.TypeBillCreated, "notify.bill_created", svc.HandleBillCreated)
	d.SubscribeNamed(event.TypeBillStatusChanged, "notify.bill_status", svc.HandleBillStatusChanged)
	d.SubscribeNamed(event.TypeClaimSubmitted, "notify.claim_submitted", svc.HandleClaimSubmitted)
	d.SubscribeNamed(event.TypeClaimVerified, "notify.claim_verified", svc.HandleClaimVerified)
}
