package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/yanqian/mealplan-ai/internal/domain/planjob"
)

var (
	// ErrNoHandler is returned when a job is enqueued before a handler is set.
	ErrNoHandler = errors.New("job queue has no handler")
	// ErrDraining is returned once Run has started shutting the queue down.
	ErrDraining = errors.New("job queue is shutting down")
)

// ImmediateQueue runs each job in its own goroutine, at most workers at a time.
type ImmediateQueue struct {
	mu       sync.RWMutex
	handler  Handler
	draining bool
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewImmediateQueue constructs the queue.
func NewImmediateQueue(workers int, logger *slog.Logger) *ImmediateQueue {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImmediateQueue{
		sem:    semaphore.NewWeighted(int64(workers)),
		logger: logger.With("component", "planjob.queue.immediate"),
	}
}

// SetHandler replaces the handler used for queued jobs.
func (q *ImmediateQueue) SetHandler(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

// Enqueue starts the job in the background. The job outlives the caller's cancellation.
func (q *ImmediateQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.draining {
		return ErrDraining
	}
	handler := q.handler
	if handler == nil {
		return ErrNoHandler
	}
	jobCtx := context.WithoutCancel(ctx)
	// added under the read lock so Run cannot start waiting in between
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.sem.Acquire(jobCtx, 1); err != nil {
			return
		}
		defer q.sem.Release(1)
		if err := handler(jobCtx, jobID); err != nil {
			q.logger.Warn("job handler failed", "job_id", jobID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every started job has returned.
func (q *ImmediateQueue) Wait() {
	q.wg.Wait()
}

// Run blocks until ctx is done and then drains in-flight jobs.
func (q *ImmediateQueue) Run(ctx context.Context) error {
	<-ctx.Done()
	q.mu.Lock()
	q.draining = true
	q.mu.Unlock()
	q.logger.Info("draining in-flight jobs")
	q.Wait()
	return nil
}

var _ planjob.Queue = (*ImmediateQueue)(nil)
var _ HandlerQueue = (*ImmediateQueue)(nil)
