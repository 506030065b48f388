package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
)

var (
	tenant = entity.Actor{UserID: "tenant-1", Name: "Asha", Role: entity.PartyTenant}
	owner  = entity.Actor{UserID: "owner-1", Name: "Ram", Role: entity.PartyOwner}
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixedClock() clock {
	t := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

// mockBillRepo keeps bills in memory unless a func field overrides a method
type mockBillRepo struct {
	mu    sync.Mutex
	bills map[string]*entity.Bill

	createFunc       func(ctx context.Context, bill *entity.Bill) error
	getByIDFunc      func(ctx context.Context, id string) (*entity.Bill, error)
	listFunc         func(ctx context.Context, filter port.BillFilter) ([]*entity.Bill, error)
	updateStatusFunc func(ctx context.Context, id string, from, to entity.BillStatus, at time.Time) (bool, error)
	overdueFunc      func(ctx context.Context, asOf time.Time, limit int) ([]*entity.Bill, error)
}

func newMockBillRepo(bills ...*entity.Bill) *mockBillRepo {
	m := &mockBillRepo{bills: make(map[string]*entity.Bill)}
	for _, b := range bills {
		m.bills[b.ID] = b
	}
	return m
}

func (m *mockBillRepo) Create(ctx context.Context, bill *entity.Bill) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, bill)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *bill
	m.bills[bill.ID] = &cp
	return nil
}

func (m *mockBillRepo) GetByID(ctx context.Context, id string) (*entity.Bill, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	cp.Claims = nil
	return &cp, nil
}

func (m *mockBillRepo) List(ctx context.Context, filter port.BillFilter) ([]*entity.Bill, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Bill
	for _, b := range m.bills {
		if filter.TenantID != "" && b.TenantID != filter.TenantID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *mockBillRepo) UpdateStatus(ctx context.Context, id string, from, to entity.BillStatus, at time.Time) (bool, error) {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, from, to, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	b.UpdatedAt = at
	return true, nil
}

func (m *mockBillRepo) ListOverdueCandidates(ctx context.Context, asOf time.Time, limit int) ([]*entity.Bill, error) {
	if m.overdueFunc != nil {
		return m.overdueFunc(ctx, asOf, limit)
	}
	return nil, nil
}

func (m *mockBillRepo) status(id string) entity.BillStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bills[id].Status
}

// mockClaimRepo is append-only like the real table
type mockClaimRepo struct {
	mu     sync.Mutex
	claims []*entity.PaymentClaim

	createFunc       func(ctx context.Context, claim *entity.PaymentClaim) error
	markVerifiedFunc func(ctx context.Context, billID, claimID, verifierID string, role entity.Party, at time.Time) (bool, error)
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *entity.PaymentClaim) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, claim)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *claim
	m.claims = append(m.claims, &cp)
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, id string) (*entity.PaymentClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.claims {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockClaimRepo) ListByBill(ctx context.Context, billID string) ([]*entity.PaymentClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.PaymentClaim
	for _, c := range m.claims {
		if c.BillID == billID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockClaimRepo) MarkVerified(ctx context.Context, billID, claimID, verifierID string, role entity.Party, at time.Time) (bool, error) {
	if m.markVerifiedFunc != nil {
		return m.markVerifiedFunc(ctx, billID, claimID, verifierID, role, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.claims {
		if c.ID == claimID && c.BillID == billID && c.State == entity.ClaimStatePending {
			c.State = entity.ClaimStateVerified
			c.VerifiedBy = verifierID
			c.VerifierRole = role
			c.VerifiedAt = &at
			return true, nil
		}
	}
	return false, nil
}

type mockReviewRepo struct {
	reviews []*entity.EvidenceReview
}

func (m *mockReviewRepo) Create(ctx context.Context, review *entity.EvidenceReview) error {
	m.reviews = append(m.reviews, review)
	return nil
}

func (m *mockReviewRepo) GetByClaimID(ctx context.Context, claimID string) (*entity.EvidenceReview, error) {
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].ClaimID == claimID {
			return m.reviews[i], nil
		}
	}
	return nil, nil
}

type mockTxManager struct {
	calls               int
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// recordingPublisher keeps published events instead of dispatching them
type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (p *recordingPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) ofType(t event.Type) []*event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*event.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type mockMetrics struct {
	port.NopMetrics
	submitted      int
	verified       int
	doubleVerifies int
}

func (m *mockMetrics) ClaimSubmitted(entity.Party)                 { m.submitted++ }
func (m *mockMetrics) ClaimVerified(entity.Party, decimal.Decimal) { m.verified++ }
func (m *mockMetrics) DoubleVerifyRejected()                       { m.doubleVerifies++ }

type mockNotifier struct {
	sent       []port.Notification
	notifyFunc func(ctx context.Context, n port.Notification) error
}

func (m *mockNotifier) Notify(ctx context.Context, n port.Notification) error {
	if m.notifyFunc != nil {
		return m.notifyFunc(ctx, n)
	}
	m.sent = append(m.sent, n)
	return nil
}

type mockInspector struct {
	pages     int
	pageErr   error
	rendered  []byte
	renderErr error
}

func (m *mockInspector) PageCount(content []byte) (int, error) {
	return m.pages, m.pageErr
}

func (m *mockInspector) RenderFirstPage(content []byte) ([]byte, error) {
	return m.rendered, m.renderErr
}

type mockReader struct {
	gotMime string
	reading *port.ReceiptReading
	err     error
}

func (m *mockReader) ReadReceipt(ctx context.Context, image []byte, mimeType string) (*port.ReceiptReading, error) {
	m.gotMime = mimeType
	return m.reading, m.err
}

// memStorage is an in-memory FileStorage serving keys under /files/
type memStorage struct {
	files map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (s *memStorage) Save(ctx context.Context, key string, content []byte) error {
	s.files[key] = content
	return nil
}

func (s *memStorage) Read(ctx context.Context, key string) ([]byte, error) {
	return s.files[key], nil
}

func (s *memStorage) Exists(ctx context.Context, key string) bool {
	_, ok := s.files[key]
	return ok
}

func (s *memStorage) Delete(ctx context.Context, key string) error {
	delete(s.files, key)
	return nil
}

func (s *memStorage) URL(key string) string {
	return "/files/" + key
}

func (s *memStorage) KeyFromURL(url string) (string, bool) {
	const prefix = "/files/"
	if len(url) <= len(prefix) || url[:len(prefix)] != prefix {
		return "", false
	}
	return url[len(prefix):], true
}

// basicBill is the 1710 bill: rent 1000, electricity 100->150 at 12,
// water 50->60 at 5, internet 60
func basicBill(id string) *entity.Bill {
	b := entity.Breakdown{
		Rent:        entity.NewFixed(1000),
		Electricity: entity.NewMetered(100, 150, 12),
		Water:       entity.NewMetered(50, 60, 5),
		Internet:    entity.NewFixed(60),
	}
	return &entity.Bill{
		ID:         id,
		PropertyID: "prop-1",
		TenantID:   tenant.UserID,
		TenantName: "Asha",
		Period:     "January 2026",
		Breakdown:  b,
		Total:      billing.ComputeBillTotal(b),
		Status:     entity.BillStatusPending,
	}
}
