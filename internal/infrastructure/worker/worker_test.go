package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
	"github.com/garyjia/rental-billing/internal/domain/workflow"
)

// fakeBills serves pending bills until they are marked
type fakeBills struct {
	mu       sync.Mutex
	pending  []string
	failures map[string]error
	marked   []string
	listErr  error
	lists    int
}

func (f *fakeBills) ListPastDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*entity.Bill
	for _, id := range f.pending {
		if len(out) == limit {
			break
		}
		out = append(out, &entity.Bill{ID: id, Status: entity.BillStatusPending})
	}
	return out, nil
}

func (f *fakeBills) MarkBillOverdue(ctx context.Context, billID string) (*entity.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[billID]; err != nil {
		return nil, err
	}
	for i, id := range f.pending {
		if id == billID {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	f.marked = append(f.marked, billID)
	return &entity.Bill{ID: billID, Status: entity.BillStatusOverdue}, nil
}

func (f *fakeBills) markedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.marked)
}

func TestOverdueWorker_SweepDrainsBacklog(t *testing.T) {
	bills := &fakeBills{}
	for i := 0; i < 7; i++ {
		bills.pending = append(bills.pending, fmt.Sprintf("bill-%d", i))
	}
	w := NewOverdueWorker(OverdueWorkerConfig{Interval: time.Hour, BatchSize: 3}, bills, zap.NewNop())

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Empty(t, bills.pending)
	assert.Equal(t, 3, bills.lists)
}

func TestOverdueWorker_SweepSkipsSettledBills(t *testing.T) {
	bills := &fakeBills{
		pending: []string{"paid", "cancelled", "raced", "broken", "late"},
		failures: map[string]error{
			"paid":      fmt.Errorf("mark overdue: %w", workflow.ErrInvalidTransition),
			"cancelled": fmt.Errorf("%w: %v", port.ErrBillCancelled, workflow.ErrInvalidTransition),
			"raced":     port.ErrStatusConflict,
			"broken":    errors.New("database is locked"),
		},
	}
	w := NewOverdueWorker(OverdueWorkerConfig{BatchSize: 10}, bills, zap.NewNop())

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"late"}, bills.marked)
	assert.Equal(t, 1, w.failed)
}

func TestOverdueWorker_SweepStopsWithoutProgress(t *testing.T) {
	bills := &fakeBills{
		pending:  []string{"a", "b"},
		failures: map[string]error{"a": errors.New("x"), "b": errors.New("y")},
	}
	w := NewOverdueWorker(OverdueWorkerConfig{BatchSize: 2, MaxBatches: 5}, bills, zap.NewNop())

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, bills.lists)
}

func TestOverdueWorker_ListError(t *testing.T) {
	bills := &fakeBills{listErr: errors.New("no such table")}
	w := NewOverdueWorker(OverdueWorkerConfig{}, bills, zap.NewNop())

	_, err := w.Sweep(context.Background())
	assert.Error(t, err)
}

func TestWorkerManager_Lifecycle(t *testing.T) {
	bills := &fakeBills{pending: []string{"late"}}
	w := NewOverdueWorker(OverdueWorkerConfig{Interval: time.Hour}, bills, zap.NewNop())

	m := NewWorkerManager(zap.NewNop())
	m.Register(w)
	assert.Equal(t, []string{"OverdueWorker"}, m.WorkerNames())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.StartAll(context.Background()))
	assert.Error(t, w.Start(context.Background()), "worker is already running")

	// the first sweep runs right away
	assert.Eventually(t, func() bool { return bills.markedCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.NoError(t, m.StopAll())
	assert.NoError(t, w.Stop())
}
