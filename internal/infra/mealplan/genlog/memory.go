package genlog

import (
	"context"
	"sync"

	domain "github.com/yanqian/mealplan-ai/internal/domain/mealplan"
)

const defaultCapacity = 500

// MemoryLog keeps the most recent generation records in a ring buffer.
type MemoryLog struct {
	mu      sync.RWMutex
	records []domain.GenerationRecord
	next    int
	full    bool
}

// NewMemoryLog constructs a log holding at most capacity records.
func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryLog{records: make([]domain.GenerationRecord, capacity)}
}

// Record appends rec, evicting the oldest record when full.
func (l *MemoryLog) Record(_ context.Context, rec domain.GenerationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[l.next] = rec
	l.next = (l.next + 1) % len(l.records)
	if l.next == 0 {
		l.full = true
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (l *MemoryLog) Recent(_ context.Context, limit int) ([]domain.GenerationRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	size := l.next
	if l.full {
		size = len(l.records)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]domain.GenerationRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.records)) % len(l.records)
		out = append(out, l.records[idx])
	}
	return out, nil
}

var _ domain.GenerationLog = (*MemoryLog)(nil)
