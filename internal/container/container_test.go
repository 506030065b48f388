package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
	infraLark "github.com/garyjia/rental-billing/internal/infrastructure/external/lark"
)

var (
	owner  = entity.Actor{UserID: "owner-1", Role: entity.PartyOwner}
	tenant = entity.Actor{UserID: "tenant-1", Role: entity.PartyTenant}
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "billing.db")
	cfg.Storage.EvidenceDir = filepath.Join(dir, "evidence")
	cfg.Auth.JWTSecret = "container-test-secret"
	return cfg
}

func startContainer(t *testing.T) *Container {
	t.Helper()
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() {
		if !c.closed.Load() {
			_ = c.Close()
		}
	})
	return c
}

func TestNewContainer_RequiresValidConfig(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Auth.JWTSecret = ""
	_, err = NewContainer(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "auth.jwt_secret is required")

	cfg = testConfig(t)
	cfg.OpenAI.Enabled = true
	_, err = NewContainer(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "openai.api_key is required")
}

func TestContainer_StartHealthClose(t *testing.T) {
	c := startContainer(t)

	assert.True(t, c.Ready())
	assert.NotNil(t, c.Services().Billing)
	assert.NotNil(t, c.Services().Review)
	assert.NotNil(t, c.Metrics())
	assert.IsType(t, &infraLark.LogNotifier{}, c.Notifier())

	health := c.Health()
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.True(t, health.Components["workers"].Healthy)
	assert.Contains(t, c.Workers().WorkerNames(), "OverdueWorker")

	// receipt review is only subscribed with a reader
	for _, h := range c.Dispatcher().ListHandlers(event.TypeClaimSubmitted) {
		assert.NotEqual(t, "review.claim_submitted", h.Name)
	}

	assert.Error(t, c.Start(context.Background()), "second start")

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close(), "second close")
	assert.Error(t, c.Start(context.Background()), "start after close")
}

func TestContainer_LedgerEndToEnd(t *testing.T) {
	c := startContainer(t)
	ctx := context.Background()
	svc := c.Services()

	bill, err := svc.Billing.CreateBill(ctx, owner, &billing.BillInput{
		PropertyID: "prop-1",
		TenantID:   tenant.UserID,
		TenantName: "Asha",
		Period:     "March 2026",
		Breakdown: entity.Breakdown{
			Rent:        entity.NewFixed(1000),
			Electricity: entity.NewMetered(100, 150, 12),
			Water:       entity.NewMetered(50, 60, 5),
			Internet:    entity.NewFixed(60),
		},
	})
	require.NoError(t, err)
	assert.True(t, bill.Total.Equal(decimal.NewFromInt(1710)))

	bill, err = svc.Ledger.SubmitBillPaymentClaim(ctx, bill.ID, tenant, &billing.ClaimInput{
		Amount: decimal.NewFromInt(1710),
	})
	require.NoError(t, err)
	require.Len(t, bill.Claims, 1)
	claimID := bill.Claims[0].ID

	_, err = svc.Ledger.VerifyBillPaymentClaim(ctx, bill.ID, claimID, owner, true)
	require.NoError(t, err)

	_, err = svc.Ledger.VerifyBillPaymentClaim(ctx, bill.ID, claimID, owner, true)
	assert.True(t, errors.Is(err, port.ErrClaimNotPending), "double verify: %v", err)

	summary, err := svc.Ledger.GetBillPaymentSummary(ctx, bill.ID, tenant)
	require.NoError(t, err)
	assert.True(t, summary.RemainingAmount.IsZero())
	assert.Empty(t, summary.PendingClaims)
	assert.Len(t, summary.History, 1)

	paid, err := svc.Billing.MarkBillPaid(ctx, bill.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, entity.BillStatusPaid, paid.Status)

	statement, err := svc.Statement.ExportStatement(ctx, bill.ID, owner)
	require.NoError(t, err)
	assert.NotEmpty(t, statement.Content)
}

func TestProvideNotifier(t *testing.T) {
	n, err := ProvideNotifier(&LarkConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &infraLark.LogNotifier{}, n)

	n, err = ProvideNotifier(&LarkConfig{
		Enabled:        true,
		AppID:          "cli_a",
		AppSecret:      "secret",
		PartyReceivers: map[string]string{"owner": "ou_owner"},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &infraLark.Messenger{}, n)

	_, err = ProvideNotifier(&LarkConfig{
		Enabled:        true,
		AppID:          "cli_a",
		AppSecret:      "secret",
		PartyReceivers: map[string]string{"landlord": "ou_x"},
	}, zap.NewNop())
	assert.ErrorContains(t, err, "landlord")
}

func TestProvideReceiptReader(t *testing.T) {
	r, err := ProvideReceiptReader(&OpenAIConfig{}, "", zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = ProvideReceiptReader(&OpenAIConfig{Enabled: true, APIKey: "sk-test", Model: "gpt-4o"}, "NPR", zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, r)

	_, err = ProvideReceiptReader(&OpenAIConfig{Enabled: true, APIKey: "sk-test", PromptsPath: filepath.Join(t.TempDir(), "none.yaml")}, "", zap.NewNop())
	assert.Error(t, err)
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("bill_id", "b1", 42, "skipped", "count", 3, "dangling")
	require.Len(t, fields, 2)
	assert.Equal(t, "bill_id", fields[0].Key)
	assert.Equal(t, "count", fields[1].Key)
}
