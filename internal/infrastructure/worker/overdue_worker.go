package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/workflow"
)

// OverdueMarker is the part of the billing service the sweeper drives
type OverdueMarker interface {
	ListPastDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Bill, error)
	MarkBillOverdue(ctx context.Context, billID string) (*entity.Bill, error)
}

// OverdueWorkerConfig holds configuration for the overdue sweeper
type OverdueWorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	// MaxBatches bounds one sweep so a large backlog cannot starve shutdown
	MaxBatches int
}

// DefaultOverdueWorkerConfig returns default configuration
func DefaultOverdueWorkerConfig() OverdueWorkerConfig {
	return OverdueWorkerConfig{
		Interval:   time.Hour,
		BatchSize:  100,
		MaxBatches: 10,
	}
}

// OverdueWorker periodically moves pending bills past their due date to overdue
type OverdueWorker struct {
	config OverdueWorkerConfig
	bills  OverdueMarker
	now    func() time.Time
	logger *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	marked    int
	failed    int
}

// NewOverdueWorker creates a new overdue sweeper
func NewOverdueWorker(config OverdueWorkerConfig, bills OverdueMarker, logger *zap.Logger) *OverdueWorker {
	defaults := DefaultOverdueWorkerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxBatches <= 0 {
		config.MaxBatches = defaults.MaxBatches
	}

	return &OverdueWorker{
		config: config,
		bills:  bills,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Name returns the worker name for identification
func (w *OverdueWorker) Name() string {
	return "OverdueWorker"
}

// Start sweeps once and then on every interval until ctx is cancelled or Stop is called
func (w *OverdueWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("overdue worker already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("OverdueWorker started",
		zap.Duration("interval", w.config.Interval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (w *OverdueWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger.Info("OverdueWorker stopped",
		zap.Int("marked_count", w.marked),
		zap.Int("failed_count", w.failed))
	return nil
}

func (w *OverdueWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("Overdue sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep marks every pending bill that is past due and returns how many moved
func (w *OverdueWorker) Sweep(ctx context.Context) (int, error) {
	asOf := w.now()
	total := 0

	for batch := 0; batch < w.config.MaxBatches; batch++ {
		bills, err := w.bills.ListPastDue(ctx, asOf, w.config.BatchSize)
		if err != nil {
			return total, fmt.Errorf("failed to list past due bills: %w", err)
		}

		marked := 0
		for _, bill := range bills {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			if w.markOne(ctx, bill) {
				marked++
			}
		}
		total += marked

		// a short page means the backlog is drained; no progress means
		// the rest keeps failing and will be retried next tick
		if len(bills) < w.config.BatchSize || marked == 0 {
			break
		}
	}

	if total > 0 {
		w.logger.Info("Bills marked overdue", zap.Int("count", total))
	}
	return total, nil
}

func (w *OverdueWorker) markOne(ctx context.Context, bill *entity.Bill) bool {
	_, err := w.bills.MarkBillOverdue(ctx, bill.ID)

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case err == nil:
		w.marked++
		return true
	case isSettledMeanwhile(err):
		w.logger.Debug("Bill changed before it could be marked overdue",
			zap.String("bill_id", bill.ID),
			zap.Error(err))
	default:
		w.failed++
		w.logger.Error("Failed to mark bill overdue",
			zap.String("bill_id", bill.ID),
			zap.Error(err))
	}
	return false
}

// isSettledMeanwhile reports errors caused by the bill being paid or cancelled after it was listed
func isSettledMeanwhile(err error) bool {
	return errors.Is(err, port.ErrStatusConflict) ||
		errors.Is(err, workflow.ErrInvalidTransition) ||
		errors.Is(err, port.ErrBillCancelled)
}
