package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/infrastructure/persistence/sqlite"
)

const billColumns = `id, property_id, tenant_id, tenant_name, period, breakdown, total,
	status, due_date, created_by, created_at, updated_at, paid_at`

// BillRepository implements port.BillRepository
type BillRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBillRepository creates a new bill repository
func NewBillRepository(db *sql.DB, logger *zap.Logger) port.BillRepository {
	return &BillRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new bill
func (r *BillRepository) Create(ctx context.Context, bill *entity.Bill) error {
	breakdown, err := json.Marshal(bill.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode breakdown: %w", err)
	}

	query := `INSERT INTO bills (` + billColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		bill.ID,
		bill.PropertyID,
		bill.TenantID,
		bill.TenantName,
		bill.Period,
		string(breakdown),
		bill.Total.String(),
		string(bill.Status),
		nullTime(bill.DueDate),
		bill.CreatedBy,
		bill.CreatedAt.UTC(),
		bill.UpdatedAt.UTC(),
		nullTime(bill.PaidAt),
	)
	if err != nil {
		r.logger.Error("Failed to create bill",
			zap.String("bill_id", bill.ID),
			zap.String("property_id", bill.PropertyID),
			zap.Error(err))
		return fmt.Errorf("failed to create bill: %w", err)
	}

	return nil
}

// GetByID retrieves a bill without its claims
func (r *BillRepository) GetByID(ctx context.Context, id string) (*entity.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = ?`

	bill, err := scanBill(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get bill by ID",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return bill, nil
}

// List returns bills matching the filter, newest first
func (r *BillRepository) List(ctx context.Context, filter port.BillFilter) ([]*entity.Bill, error) {
	var where []string
	var args []interface{}

	if filter.PropertyID != "" {
		where = append(where, "property_id = ?")
		args = append(args, filter.PropertyID)
	}
	if filter.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + billColumns + ` FROM bills`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	return r.query(ctx, query, args...)
}

// UpdateStatus moves a bill from one status to another. It reports false when
// the bill was no longer in the expected status.
func (r *BillRepository) UpdateStatus(ctx context.Context, id string, from, to entity.BillStatus, at time.Time) (bool, error) {
	query := `
		UPDATE bills
		SET status = ?,
			updated_at = ?,
			paid_at = CASE WHEN ? = 'paid' THEN ? ELSE paid_at END
		WHERE id = ? AND status = ?
	`

	at = at.UTC()
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		string(to), at, string(to), at, id, string(from))
	if err != nil {
		r.logger.Error("Failed to update bill status",
			zap.String("id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
		return false, fmt.Errorf("failed to update bill status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}

// ListOverdueCandidates returns pending bills whose due date passed before asOf
func (r *BillRepository) ListOverdueCandidates(ctx context.Context, asOf time.Time, limit int) ([]*entity.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills
		WHERE status = 'pending' AND due_date IS NOT NULL AND due_date < ?
		ORDER BY due_date
		LIMIT ?`

	return r.query(ctx, query, asOf.UTC(), limit)
}

func (r *BillRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Bill, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query bills", zap.Error(err))
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var bills []*entity.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}

	return bills, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBill(s scanner) (*entity.Bill, error) {
	var bill entity.Bill
	var breakdown, status string
	var dueDate, paidAt sql.NullTime

	err := s.Scan(
		&bill.ID,
		&bill.PropertyID,
		&bill.TenantID,
		&bill.TenantName,
		&bill.Period,
		&breakdown,
		&bill.Total,
		&status,
		&dueDate,
		&bill.CreatedBy,
		&bill.CreatedAt,
		&bill.UpdatedAt,
		&paidAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(breakdown), &bill.Breakdown); err != nil {
		return nil, fmt.Errorf("bill %s: %w", bill.ID, err)
	}
	bill.Status = entity.BillStatus(status)
	bill.DueDate = timePtr(dueDate)
	bill.PaidAt = timePtr(paidAt)

	return &bill, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// Verify interface compliance
var _ port.BillRepository = (*BillRepository)(nil)
