package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/gigmarket/portal-core/internal/metrics"
)

// Task is a unit of best-effort background bookkeeping.
type Task struct {
	Op  string
	Run func(ctx context.Context) error
}

// Queue executes bookkeeping tasks off the admission critical path. Failures
// are logged and counted, never propagated; every task is idempotent and
// retried naturally on the next admission, so dropping work is safe.
type Queue struct {
	tasks   chan Task
	timeout time.Duration
}

// NewQueue creates a queue with the given buffer capacity.
func NewQueue(size int) *Queue {
	return &Queue{
		tasks:   make(chan Task, size),
		timeout: 10 * time.Second,
	}
}

// Submit enqueues a task. When the queue is full the task is dropped and
// counted as a fault.
func (q *Queue) Submit(t Task) bool {
	select {
	case q.tasks <- t:
		return true
	default:
		slog.Warn("reconciliation queue full, dropping task", "op", t.Op)
		metrics.ReconciliationFaults.WithLabelValues(t.Op).Inc()
		return false
	}
}

// Start consumes tasks until ctx is cancelled. It blocks; run it in its own
// goroutine.
func (q *Queue) Start(ctx context.Context) {
	slog.Info("reconciliation queue started", "capacity", cap(q.tasks))

	for {
		select {
		case <-ctx.Done():
			slog.Info("reconciliation queue stopped")
			return
		case t := <-q.tasks:
			q.run(ctx, t)
		}
	}
}

func (q *Queue) run(ctx context.Context, t Task) {
	tctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	if err := t.Run(tctx); err != nil {
		slog.Error("reconciliation task failed", "op", t.Op, "error", err)
		metrics.ReconciliationFaults.WithLabelValues(t.Op).Inc()
	}
}
