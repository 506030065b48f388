package service

import (
	"context"
	"fmt"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/billing"
	"github.com/garyjia/rental-billing/internal/domain/entity"
)

// Statement is a rendered bill statement
type Statement struct {
	FileName    string
	ContentType string
	Content     []byte
}

// StatementService exports a bill with its payment history
type StatementService interface {
	ExportStatement(ctx context.Context, billID string, actor entity.Actor) (*Statement, error)
}

type statementServiceImpl struct {
	bills  BillingService
	writer port.StatementWriter
	logger Logger
}

// NewStatementService creates a new StatementService
func NewStatementService(bills BillingService, writer port.StatementWriter, logger Logger) StatementService {
	return &statementServiceImpl{
		bills:  bills,
		writer: writer,
		logger: logger,
	}
}

func (s *statementServiceImpl) ExportStatement(ctx context.Context, billID string, actor entity.Actor) (*Statement, error) {
	bill, err := s.bills.GetBill(ctx, billID, actor)
	if err != nil {
		return nil, err
	}

	content, err := s.writer.WriteStatement(bill, billing.GetBillSectionSummary(bill), billing.GetBillPaymentSummary(bill))
	if err != nil {
		s.logger.Error("Failed to write statement", "error", err, "bill_id", billID)
		return nil, fmt.Errorf("write statement: %w", err)
	}

	s.logger.Info("Statement exported", "bill_id", billID, "size", len(content))
	return &Statement{
		FileName:    fmt.Sprintf("statement-%s.xlsx", bill.ID),
		ContentType: s.writer.ContentType(),
		Content:     content,
	}, nil
}
