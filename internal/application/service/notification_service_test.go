package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/rental-billing/internal/application/dispatcher"
	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
)

func TestNotificationService_Handlers(t *testing.T) {
	tests := []struct {
		name      string
		evt       *event.Event
		handle    func(NotificationService) func(context.Context, *event.Event) error
		wantParty entity.Party
		wantUser  string
		wantText  string
	}{
		{
			name: "tenant claim goes to owner",
			evt: event.NewEvent(event.TypeClaimSubmitted, "bill-1", "tenant-1", map[string]interface{}{
				event.KeyAmount:    d("1000"),
				event.KeyPaidBy:    "tenant",
				event.KeyActorName: "Asha",
				event.KeyTenantID:  "tenant-1",
				event.KeyPeriod:    "January 2026",
			}),
			handle:    func(s NotificationService) func(context.Context, *event.Event) error { return s.HandleClaimSubmitted },
			wantParty: entity.PartyOwner,
			wantText:  "Asha submitted a payment of NPR 1000.00 for January 2026. Please verify it.",
		},
		{
			name: "owner claim goes to tenant",
			evt: event.NewEvent(event.TypeClaimSubmitted, "bill-1", "owner-1", map[string]interface{}{
				event.KeyAmount:   "60",
				event.KeyPaidBy:   "owner",
				event.KeyTenantID: "tenant-1",
				event.KeyPeriod:   "January 2026",
			}),
			handle:    func(s NotificationService) func(context.Context, *event.Event) error { return s.HandleClaimSubmitted },
			wantParty: entity.PartyTenant,
			wantUser:  "tenant-1",
			wantText:  "The owner submitted a payment of NPR 60.00 for January 2026. Please verify it.",
		},
		{
			name: "verified and settled",
			evt: event.NewEvent(event.TypeClaimVerified, "bill-1", "owner-1", map[string]interface{}{
				event.KeyAmount:    d("710"),
				event.KeyRemaining: d("0"),
				event.KeyPaidBy:    "tenant",
				event.KeyTenantID:  "tenant-1",
				event.KeyPeriod:    "January 2026",
				event.KeySettled:   true,
			}),
			handle:    func(s NotificationService) func(context.Context, *event.Event) error { return s.HandleClaimVerified },
			wantParty: entity.PartyTenant,
			wantUser:  "tenant-1",
			wantText:  "Your payment of NPR 710.00 for January 2026 was verified. Remaining: NPR 0.00. The bill is fully paid.",
		},
		{
			name: "bill created",
			evt: event.NewEvent(event.TypeBillCreated, "bill-1", "owner-1", map[string]interface{}{
				event.KeyAmount:   d("1710"),
				event.KeyTenantID: "tenant-1",
				event.KeyPeriod:   "January 2026",
			}),
			handle:    func(s NotificationService) func(context.Context, *event.Event) error { return s.HandleBillCreated },
			wantParty: entity.PartyTenant,
			wantUser:  "tenant-1",
			wantText:  "New bill for January 2026: total NPR 1710.00.",
		},
		{
			name: "status changed",
			evt: event.NewEvent(event.TypeBillStatusChanged, "bill-1", "", map[string]interface{}{
				event.KeyToStatus: "overdue",
				event.KeyTenantID: "tenant-1",
				event.KeyPeriod:   "January 2026",
			}),
			handle:    func(s NotificationService) func(context.Context, *event.Event) error { return s.HandleBillStatusChanged },
			wantParty: entity.PartyTenant,
			wantUser:  "tenant-1",
			wantText:  "Bill for January 2026 is now overdue.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &mockNotifier{}
			svc := NewNotificationService(notifier, "NPR", &mockLogger{})

			require.NoError(t, tt.handle(svc)(context.Background(), tt.evt))
			require.Len(t, notifier.sent, 1)
			n := notifier.sent[0]
			assert.Equal(t, tt.wantParty, n.Party)
			assert.Equal(t, tt.wantUser, n.UserID)
			assert.Equal(t, "bill-1", n.BillID)
			assert.Equal(t, tt.wantText, n.Text)
		})
	}
}

func TestNotificationService_FailureStaysInDispatcher(t *testing.T) {
	notifier := &mockNotifier{notifyFunc: func(ctx context.Context, n port.Notification) error {
		return errors.New("lark unavailable")
	}}
	svc := NewNotificationService(notifier, "", &mockLogger{})
	d := dispatcher.NewDispatcher()
	RegisterNotificationHandlers(d, svc)

	assert.Len(t, d.ListHandlers(event.TypeClaimSubmitted), 1)
	assert.Len(t, d.ListHandlers(event.TypeClaimVerified), 1)

	// the publishing side never sees the failure
	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeClaimVerified, "bill-1", "owner-1", map[string]interface{}{
		event.KeyPaidBy: "tenant",
	}))
	require.NoError(t, d.Close())
}

func TestNotificationService_UnknownPayer(t *testing.T) {
	notifier := &mockNotifier{}
	svc := NewNotificationService(notifier, "", &mockLogger{})

	err := svc.HandleClaimSubmitted(context.Background(), event.NewEvent(event.TypeClaimSubmitted, "bill-1", "", nil))
	assert.Error(t, err)
	assert.Empty(t, notifier.sent)
}
