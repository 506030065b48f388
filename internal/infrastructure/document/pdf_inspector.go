package document

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
)

// PDFInspector implements port.DocumentInspector using mupdf
type PDFInspector struct {
	quality int
	logger  *zap.Logger
}

// NewPDFInspector creates a new PDF inspector encoding pages at the given JPEG quality
func NewPDFInspector(quality int, logger *zap.Logger) *PDFInspector {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &PDFInspector{
		quality: quality,
		logger:  logger,
	}
}

// PageCount opens the PDF and returns its number of pages
func (p *PDFInspector) PageCount(content []byte) (int, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	return doc.NumPage(), nil
}

// RenderFirstPage renders page one as a JPEG
func (p *PDFInspector) RenderFirstPage(content []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() < 1 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		p.logger.Warn("Failed to extract page as image", zap.Error(err))
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	p.logger.Debug("Rendered PDF page",
		zap.Int("pages", doc.NumPage()),
		zap.Int("size_bytes", buf.Len()))

	return buf.Bytes(), nil
}

// Verify interface compliance
var _ port.DocumentInspector = (*PDFInspector)(nil)
