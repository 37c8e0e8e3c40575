package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yanqian/mealplan-ai/internal/domain/planjob"
)

const defaultMemoryCapacity = 10_000

// MemoryStore keeps jobs in a bounded in-process cache with a TTL.
type MemoryStore struct {
	jobs *expirable.LRU[string, planjob.Job]
}

// NewMemoryStore constructs the store. Jobs older than ttl are dropped.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryStore{jobs: expirable.NewLRU[string, planjob.Job](capacity, nil, ttl)}
}

// Save upserts the job.
func (s *MemoryStore) Save(_ context.Context, job planjob.Job) error {
	s.jobs.Add(job.ID, job)
	return nil
}

// Get returns the job if it has not expired.
func (s *MemoryStore) Get(_ context.Context, id string) (planjob.Job, bool, error) {
	job, ok := s.jobs.Get(id)
	return job, ok, nil
}

var _ planjob.Store = (*MemoryStore)(nil)
