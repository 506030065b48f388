package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
)

// Sheet names of a statement workbook
const (
	SheetBill     = "Bill"
	SheetPayments = "Payments"
)

const dateLayout = "2006-01-02 15:04"

// XLSXStatementWriter implements port.StatementWriter as an Excel workbook
type XLSXStatementWriter struct {
	currency string
	logger   *zap.Logger
}

// NewXLSXStatementWriter creates a new statement writer
func NewXLSXStatementWriter(currency string, logger *zap.Logger) *XLSXStatementWriter {
	return &XLSXStatementWriter{
		currency: currency,
		logger:   logger,
	}
}

// ContentType returns the xlsx media type
func (w *XLSXStatementWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// WriteStatement renders the bill sections and the payment ledger
func (w *XLSXStatementWriter) WriteStatement(bill *entity.Bill, sections *billing.SectionSummary, payments *entity.PaymentSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetBill); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetPayments); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	s, err := newSheetWriter(f)
	if err != nil {
		return nil, err
	}

	w.writeBill(s, bill, sections, payments)
	w.writePayments(s, payments)

	if s.err != nil {
		return nil, fmt.Errorf("failed to write statement: %w", s.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}

	w.logger.Debug("Statement written",
		zap.String("bill_id", bill.ID),
		zap.Int("size", buf.Len()))

	return buf.Bytes(), nil
}

func (w *XLSXStatementWriter) writeBill(s *sheetWriter, bill *entity.Bill, sections *billing.SectionSummary, payments *entity.PaymentSummary) {
	const sheet = SheetBill

	s.text(sheet, 1, 1, "Rent statement", s.bold)
	header := [][2]string{
		{"Bill", bill.ID},
		{"Period", bill.Period},
		{"Tenant", bill.TenantName},
		{"Property", bill.PropertyID},
		{"Status", string(bill.Status)},
		{"Currency", w.currency},
	}
	row := 2
	for _, h := range header {
		s.text(sheet, 1, row, h[0], s.bold)
		s.text(sheet, 2, row, h[1], 0)
		row++
	}
	if bill.DueDate != nil {
		s.text(sheet, 1, row, "Due date", s.bold)
		s.text(sheet, 2, row, bill.DueDate.Format("2006-01-02"), 0)
		row++
	}

	row++
	for col, title := range []string{"Section", "Kind", "Previous unit", "Current unit", "Units", "Rate", "Amount"} {
		s.text(sheet, col+1, row, title, s.bold)
	}
	row++

	lines := []struct {
		name    string
		section *billing.Section
	}{
		{"Rent", &sections.Rent},
		{"Due", sections.Due},
		{"Penalty", sections.Penalty},
		{"Electricity", &sections.Electricity},
		{"Water", &sections.Water},
		{"Internet", &sections.Internet},
	}
	for _, l := range lines {
		if l.section == nil {
			continue
		}
		s.text(sheet, 1, row, l.name, 0)
		s.text(sheet, 2, row, string(l.section.Kind), 0)
		if u := l.section.Usage; u != nil {
			s.number(sheet, 3, row, u.PreviousUnit, 0)
			s.number(sheet, 4, row, u.CurrentUnit, 0)
			s.number(sheet, 5, row, u.Units, 0)
			s.number(sheet, 6, row, u.Rate, s.money)
		}
		s.number(sheet, 7, row, l.section.Amount, s.money)
		row++
	}
	for _, o := range sections.Others {
		s.text(sheet, 1, row, o.Label, 0)
		s.number(sheet, 7, row, o.Amount, s.money)
		row++
	}

	row++
	totals := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Total", sections.Total},
		{"Paid", payments.TotalPaid},
		{"Remaining", payments.RemainingAmount},
	}
	for _, t := range totals {
		s.text(sheet, 6, row, t.label, s.bold)
		s.number(sheet, 7, row, t.amount, s.money)
		row++
	}

	s.widths(sheet, map[string]float64{"A": 16, "B": 24, "C": 14, "D": 14, "E": 10, "F": 12, "G": 14})
}

func (w *XLSXStatementWriter) writePayments(s *sheetWriter, payments *entity.PaymentSummary) {
	const sheet = SheetPayments

	titles := []string{"Claim", "Submitted", "Paid by", "Amount", "State", "Verified by", "Verified", "Remaining after", "Remarks"}
	for col, title := range titles {
		s.text(sheet, col+1, 1, title, s.bold)
	}

	// verified claims, oldest first, then pending ones
	row := 2
	for i := len(payments.History) - 1; i >= 0; i-- {
		h := payments.History[i]
		s.text(sheet, 1, row, h.ClaimID, 0)
		s.text(sheet, 2, row, formatTime(&h.SubmittedAt), 0)
		s.text(sheet, 3, row, string(h.PaidBy), 0)
		s.number(sheet, 4, row, h.Amount, s.money)
		s.text(sheet, 5, row, string(entity.ClaimStateVerified), 0)
		s.text(sheet, 6, row, h.VerifiedBy, 0)
		s.text(sheet, 7, row, formatTime(h.VerifiedAt), 0)
		s.number(sheet, 8, row, h.RemainingAmount, s.money)
		s.text(sheet, 9, row, h.Remarks, 0)
		row++
	}
	for _, c := range payments.PendingClaims {
		s.text(sheet, 1, row, c.ID, 0)
		s.text(sheet, 2, row, formatTime(&c.SubmittedAt), 0)
		s.text(sheet, 3, row, string(c.PaidBy), 0)
		s.number(sheet, 4, row, c.Amount, s.money)
		s.text(sheet, 5, row, string(c.State), 0)
		s.text(sheet, 9, row, c.Remarks, 0)
		row++
	}

	s.widths(sheet, map[string]float64{"A": 38, "B": 18, "G": 18, "H": 16, "I": 30})
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// sheetWriter keeps the first error so cell writes can be chained
type sheetWriter struct {
	f     *excelize.File
	bold  int
	money int
	err   error
}

func newSheetWriter(f *excelize.File) (*sheetWriter, error) {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	// built-in format 4 is #,##0.00
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	return &sheetWriter{f: f, bold: bold, money: money}, nil
}

func (s *sheetWriter) set(sheet string, col, row int, value interface{}, style int) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetCellValue(sheet, cell, value); err != nil {
		s.err = err
		return
	}
	if style != 0 {
		s.err = s.f.SetCellStyle(sheet, cell, cell, style)
	}
}

func (s *sheetWriter) text(sheet string, col, row int, value string, style int) {
	s.set(sheet, col, row, value, style)
}

func (s *sheetWriter) number(sheet string, col, row int, value decimal.Decimal, style int) {
	s.set(sheet, col, row, value.InexactFloat64(), style)
}

func (s *sheetWriter) widths(sheet string, widths map[string]float64) {
	for col, width := range widths {
		if s.err != nil {
			return
		}
		s.err = s.f.SetColWidth(sheet, col, col, width)
	}
}

// Verify interface compliance
var _ port.StatementWriter = (*XLSXStatementWriter)(nil)
