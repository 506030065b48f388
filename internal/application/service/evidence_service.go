package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/event"
	"github.com/garyjia/rental-billing/pkg/utils"
)

// EvidenceService stores payment evidence files
type EvidenceService interface {
	// UploadEvidence stores a PDF or image for a bill and returns the
	// descriptor a payment claim refers to
	UploadEvidence(ctx context.Context, billID string, actor entity.Actor, fileName string, content []byte) (*entity.Evidence, error)
	// OpenEvidence returns a stored file and its sniffed content type
	OpenEvidence(ctx context.Context, key string) ([]byte, string, error)
	// LoadEvidence reads the file behind a claim's evidence descriptor
	LoadEvidence(ctx context.Context, evidence *entity.Evidence) ([]byte, error)
}

type evidenceServiceImpl struct {
	billRepo  port.BillRepository
	storage   port.FileStorage
	inspector port.DocumentInspector
	publisher EventPublisher
	metrics   port.MetricsRecorder
	maxBytes  int64
	logger    Logger
}

// NewEvidenceService creates a new EvidenceService. maxBytes <= 0 means no limit.
func NewEvidenceService(
	billRepo port.BillRepository,
	storage port.FileStorage,
	inspector port.DocumentInspector,
	publisher EventPublisher,
	metrics port.MetricsRecorder,
	maxBytes int64,
	logger Logger,
) EvidenceService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &evidenceServiceImpl{
		billRepo:  billRepo,
		storage:   storage,
		inspector: inspector,
		publisher: publisher,
		metrics:   metrics,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

func (s *evidenceServiceImpl) UploadEvidence(ctx context.Context, billID string, actor entity.Actor, fileName string, content []byte) (*entity.Evidence, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	// the client's content type is never trusted
	detected := mimetype.Detect(content)
	mimeType := detected.String()
	if err := billing.ValidateEvidenceFile(mimeType, int64(len(content)), s.maxBytes); err != nil {
		return nil, err
	}

	bill, err := s.billRepo.GetByID(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	if bill == nil {
		return nil, port.ErrBillNotFound
	}
	if bill.IsCancelled() {
		return nil, port.ErrBillCancelled
	}
	if !canAccess(bill, actor) {
		return nil, port.ErrForbidden
	}

	evidence := &entity.Evidence{MimeType: mimeType, Name: displayName(fileName, detected.Extension())}
	if evidence.IsPDF() && s.inspector != nil {
		pages, err := s.inspector.PageCount(content)
		if err != nil || pages < 1 {
			s.logger.Error("Unreadable PDF evidence", "error", err, "bill_id", billID, "pages", pages)
			return nil, &billing.ValidationError{Field: "file", Message: billing.MsgEvidenceUnreadable}
		}
	}

	key := path.Join(billID, uuid.NewString()+detected.Extension())
	if err := s.storage.Save(ctx, key, content); err != nil {
		s.logger.Error("Failed to store evidence", "error", err, "bill_id", billID)
		return nil, fmt.Errorf("store evidence: %w", err)
	}
	evidence.URL = s.storage.URL(key)

	s.metrics.EvidenceUploaded(mimeType)
	s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeEvidenceUploaded, billID, actor.UserID, map[string]interface{}{
		event.KeyEvidence: evidence.URL,
		event.KeyMimeType: evidence.MimeType,
	}))

	s.logger.Info("Evidence uploaded",
		"bill_id", billID,
		"url", evidence.URL,
		"mime_type", mimeType,
		"size", len(content),
	)
	return evidence, nil
}

func (s *evidenceServiceImpl) OpenEvidence(ctx context.Context, key string) ([]byte, string, error) {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	if key == "" || !s.storage.Exists(ctx, key) {
		return nil, "", port.ErrEvidenceNotFound
	}

	content, err := s.storage.Read(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("read evidence: %w", err)
	}
	return content, mimetype.Detect(content).String(), nil
}

func (s *evidenceServiceImpl) LoadEvidence(ctx context.Context, evidence *entity.Evidence) ([]byte, error) {
	if evidence == nil {
		return nil, port.ErrEvidenceNotFound
	}
	key, ok := s.storage.KeyFromURL(evidence.URL)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not stored here", port.ErrEvidenceNotFound, evidence.URL)
	}
	content, _, err := s.OpenEvidence(ctx, key)
	return content, err
}

// displayName keeps the client's file name for display, falling back to a
// generic one with the sniffed extension
func displayName(fileName, ext string) string {
	name := utils.CleanText(path.Base(strings.ReplaceAll(fileName, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "evidence" + ext
	}
	return name
}
