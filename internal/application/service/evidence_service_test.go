package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
)

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

func TestEvidenceService_UploadEvidence(t *testing.T) {
	tests := []struct {
		name      string
		fileName  string
		content   []byte
		inspector *mockInspector
		maxBytes  int64
		wantMime  string
		wantExt   string
		wantName  string
		wantMsg   string
	}{
		{
			name:      "pdf receipt",
			fileName:  "receipt.pdf",
			content:   pdfBytes,
			inspector: &mockInspector{pages: 1},
			wantMime:  "application/pdf",
			wantExt:   ".pdf",
			wantName:  "receipt.pdf",
		},
		{
			name:     "png disguised as pdf by name",
			fileName: `C:\Users\asha\receipt.pdf`,
			content:  pngBytes,
			wantMime: "image/png",
			wantExt:  ".png",
			wantName: "receipt.pdf",
		},
		{
			name:     "blank name",
			fileName: "",
			content:  pngBytes,
			wantMime: "image/png",
			wantExt:  ".png",
			wantName: "evidence.png",
		},
		{
			name:     "plain text",
			fileName: "receipt.pdf",
			content:  []byte("I paid, honest"),
			wantMsg:  "Evidence file must be a PDF or an image",
		},
		{
			name:     "empty",
			fileName: "receipt.png",
			content:  nil,
			wantMsg:  "Evidence file is empty",
		},
		{
			name:     "too large",
			fileName: "receipt.png",
			content:  pngBytes,
			maxBytes: 8,
			wantMsg:  "Evidence file must be at most 8 bytes",
		},
		{
			name:      "unreadable pdf",
			fileName:  "receipt.pdf",
			content:   pdfBytes,
			inspector: &mockInspector{pageErr: errors.New("broken xref")},
			wantMsg:   "Evidence PDF could not be read",
		},
		{
			name:      "pdf without pages",
			fileName:  "receipt.pdf",
			content:   pdfBytes,
			inspector: &mockInspector{pages: 0},
			wantMsg:   "Evidence PDF could not be read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newMemStorage()
			publisher := &recordingPublisher{}
			inspector := tt.inspector
			if inspector == nil {
				inspector = &mockInspector{pages: 1}
			}
			svc := NewEvidenceService(newMockBillRepo(basicBill("bill-1")), storage, inspector, publisher, nil, tt.maxBytes, &mockLogger{})

			evidence, err := svc.UploadEvidence(context.Background(), "bill-1", tenant, tt.fileName, tt.content)
			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantMsg, err.Error())
				assert.True(t, billing.IsValidationError(err))
				assert.Empty(t, storage.files)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantMime, evidence.MimeType)
			assert.Equal(t, tt.wantName, evidence.Name)
			assert.True(t, strings.HasPrefix(evidence.URL, "/files/bill-1/"))
			assert.True(t, strings.HasSuffix(evidence.URL, tt.wantExt))
			assert.Len(t, storage.files, 1)

			// the descriptor is accepted by claim validation as is
			assert.NoError(t, billing.ValidateEvidence(evidence))

			uploaded := publisher.ofType(event.TypeEvidenceUploaded)
			require.Len(t, uploaded, 1)
			assert.Equal(t, evidence.URL, uploaded[0].GetPayloadString(event.KeyEvidence))
		})
	}
}

func TestEvidenceService_UploadEvidenceBillChecks(t *testing.T) {
	cancelled := basicBill("cancelled")
	cancelled.Status = entity.BillStatusCancelled
	svc := NewEvidenceService(newMockBillRepo(cancelled), newMemStorage(), &mockInspector{pages: 1}, nil, nil, 0, &mockLogger{})

	_, err := svc.UploadEvidence(context.Background(), "cancelled", tenant, "r.png", pngBytes)
	assert.ErrorIs(t, err, port.ErrBillCancelled)

	_, err = svc.UploadEvidence(context.Background(), "missing", tenant, "r.png", pngBytes)
	assert.ErrorIs(t, err, port.ErrBillNotFound)
}

func TestEvidenceService_OpenEvidence(t *testing.T) {
	storage := newMemStorage()
	svc := NewEvidenceService(newMockBillRepo(basicBill("bill-1")), storage, &mockInspector{pages: 1}, nil, nil, 0, &mockLogger{})

	evidence, err := svc.UploadEvidence(context.Background(), "bill-1", tenant, "r.png", pngBytes)
	require.NoError(t, err)

	key, ok := storage.KeyFromURL(evidence.URL)
	require.True(t, ok)

	content, mime, err := svc.OpenEvidence(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, content)
	assert.Equal(t, "image/png", mime)

	_, _, err = svc.OpenEvidence(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, port.ErrEvidenceNotFound)

	loaded, err := svc.LoadEvidence(context.Background(), evidence)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, loaded)

	_, err = svc.LoadEvidence(context.Background(), &entity.Evidence{URL: "https://elsewhere.example/r.png"})
	assert.ErrorIs(t, err, port.ErrEvidenceNotFound)
}

func TestReviewService_ReviewClaimEvidence(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	bills := newMockBillRepo(basicBill("bill-1"))
	claims := &mockClaimRepo{}
	reviews := &mockReviewRepo{}
	inspector := &mockInspector{pages: 1, rendered: []byte("jpeg")}
	evidenceSvc := NewEvidenceService(bills, storage, inspector, nil, nil, 0, &mockLogger{})

	pdf, err := evidenceSvc.UploadEvidence(ctx, "bill-1", tenant, "r.pdf", pdfBytes)
	require.NoError(t, err)
	_ = claims.Create(ctx, &entity.PaymentClaim{ID: "c1", BillID: "bill-1", Amount: d("1000"), Evidence: pdf, State: entity.ClaimStatePending})
	_ = claims.Create(ctx, &entity.PaymentClaim{ID: "c2", BillID: "bill-1", Amount: d("5")})

	reader := &mockReader{reading: &port.ReceiptReading{
		Amount:     decimal.NewNullDecimal(d("1000.00")),
		Confidence: 0.9,
		Model:      "gpt-4o",
	}}
	svc := NewReviewService(bills, claims, reviews, evidenceSvc, inspector, reader, &mockLogger{})

	review, err := svc.ReviewClaimEvidence(ctx, "bill-1", "c1")
	require.NoError(t, err)
	assert.True(t, review.AmountMatches)
	assert.Equal(t, "image/jpeg", reader.gotMime, "PDFs are rendered before reading")
	require.Len(t, reviews.reviews, 1)

	got, err := svc.GetEvidenceReview(ctx, "bill-1", "c1", owner)
	require.NoError(t, err)
	assert.Equal(t, review.ID, got.ID)

	// advisory only: the claim is untouched
	stored, _ := claims.GetByID(ctx, "c1")
	assert.Equal(t, entity.ClaimStatePending, stored.State)

	_, err = svc.ReviewClaimEvidence(ctx, "bill-1", "c2")
	assert.ErrorIs(t, err, port.ErrEvidenceNotFound)

	_, err = svc.ReviewClaimEvidence(ctx, "other-bill", "c1")
	assert.ErrorIs(t, err, port.ErrClaimNotFound)

	_, err = svc.GetEvidenceReview(ctx, "bill-1", "c2", owner)
	assert.ErrorIs(t, err, port.ErrReviewNotFound)
}

func TestReviewService_MismatchAndSkip(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	bills := newMockBillRepo(basicBill("bill-1"))
	claims := &mockClaimRepo{}
	reviews := &mockReviewRepo{}
	evidenceSvc := NewEvidenceService(bills, storage, nil, nil, nil, 0, &mockLogger{})

	png, err := evidenceSvc.UploadEvidence(ctx, "bill-1", tenant, "r.png", pngBytes)
	require.NoError(t, err)
	_ = claims.Create(ctx, &entity.PaymentClaim{ID: "c1", BillID: "bill-1", Amount: d("1000"), Evidence: png})

	reader := &mockReader{reading: &port.ReceiptReading{Amount: decimal.NewNullDecimal(d("100"))}}
	svc := NewReviewService(bills, claims, reviews, evidenceSvc, nil, reader, &mockLogger{})

	evt := event.NewEvent(event.TypeClaimSubmitted, "bill-1", tenant.UserID, map[string]interface{}{
		event.KeyClaimID:  "c1",
		event.KeyEvidence: png.URL,
	})
	require.NoError(t, svc.HandleClaimSubmitted(ctx, evt))
	require.Len(t, reviews.reviews, 1)
	assert.False(t, reviews.reviews[0].AmountMatches)
	assert.Equal(t, "image/png", reader.gotMime)

	// claims without evidence are ignored
	noEvidence := event.NewEvent(event.TypeClaimSubmitted, "bill-1", tenant.UserID, map[string]interface{}{event.KeyClaimID: "c9"})
	require.NoError(t, svc.HandleClaimSubmitted(ctx, noEvidence))
	assert.Len(t, reviews.reviews, 1)
}

func TestReviewService_EvidenceWithoutType(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	bills := newMockBillRepo(basicBill("bill-1"))
	claims := &mockClaimRepo{}
	reviews := &mockReviewRepo{}
	inspector := &mockInspector{pages: 1, rendered: []byte("jpeg")}
	evidenceSvc := NewEvidenceService(bills, storage, inspector, nil, nil, 0, &mockLogger{})

	pdf, err := evidenceSvc.UploadEvidence(ctx, "bill-1", tenant, "r.pdf", pdfBytes)
	require.NoError(t, err)
	untyped := &entity.Evidence{URL: pdf.URL, Name: pdf.Name}
	_ = claims.Create(ctx, &entity.PaymentClaim{ID: "c1", BillID: "bill-1", Amount: d("1000"), Evidence: untyped})

	reader := &mockReader{reading: &port.ReceiptReading{Amount: decimal.NewNullDecimal(d("1000"))}}
	svc := NewReviewService(bills, claims, reviews, evidenceSvc, inspector, reader, &mockLogger{})

	review, err := svc.ReviewClaimEvidence(ctx, "bill-1", "c1")
	require.NoError(t, err)
	assert.True(t, review.AmountMatches)
	assert.Equal(t, "image/jpeg", reader.gotMime, "sniffed PDFs are rendered before reading")
}
