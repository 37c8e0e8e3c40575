package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/mealplan-ai/internal/domain/planjob"
)

// ValkeyQueue persists job ids in a Valkey list and delivers them to a handler.
type ValkeyQueue struct {
	client      valkey.Client
	queueKey    string
	logger      *slog.Logger
	pollTimeout time.Duration

	mu      sync.RWMutex
	handler Handler
}

// NewValkeyQueue constructs a Valkey-backed queue.
func NewValkeyQueue(client valkey.Client, queueKey string, logger *slog.Logger) *ValkeyQueue {
	if queueKey == "" {
		queueKey = "mealplan:jobs"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ValkeyQueue{
		client:      client,
		queueKey:    queueKey,
		logger:      logger.With("component", "planjob.queue.valkey"),
		pollTimeout: 5 * time.Second,
	}
}

// SetHandler sets the handler used by Run.
func (q *ValkeyQueue) SetHandler(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

// Enqueue pushes a job id onto the queue.
func (q *ValkeyQueue) Enqueue(ctx context.Context, jobID string) error {
	cmd := q.client.B().Lpush().Key(q.queueKey).Element(jobID).Build()
	return q.client.Do(ctx, cmd).Error()
}

// Run pops job ids until ctx is done. Jobs are handled one at a time per consumer.
func (q *ValkeyQueue) Run(ctx context.Context) error {
	q.logger.Info("valkey job consumer started", "queue", q.queueKey)
	for {
		if ctx.Err() != nil {
			return nil
		}
		resp := q.client.Do(ctx, q.client.B().Brpop().Key(q.queueKey).Timeout(q.pollTimeout.Seconds()).Build())
		values, err := resp.ToArray()
		if err != nil {
			if !valkey.IsValkeyNil(err) && ctx.Err() == nil {
				q.logger.Warn("valkey queue pop failed", "error", err)
				sleep(ctx, time.Second)
			}
			continue
		}
		if len(values) < 2 {
			continue
		}
		jobID, err := values[1].ToString()
		if err != nil {
			q.logger.Warn("valkey queue payload decode failed", "error", err)
			continue
		}
		q.mu.RLock()
		handler := q.handler
		q.mu.RUnlock()
		if handler == nil {
			q.logger.Warn("dropping job, no handler set", "job_id", jobID)
			continue
		}
		// a popped job finishes even when shutdown starts
		if err := handler(context.WithoutCancel(ctx), jobID); err != nil {
			q.logger.Warn("job handler failed", "job_id", jobID, "error", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var _ planjob.Queue = (*ValkeyQueue)(nil)
var _ HandlerQueue = (*ValkeyQueue)(nil)
