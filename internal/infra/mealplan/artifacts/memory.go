package artifacts

import (
	"context"
	"path"
	"sync"

	domain "github.com/yanqian/mealplan-ai/internal/domain/mealplan"
)

// MemoryStore keeps artifacts in memory. Useful for tests and local dev.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore constructs the store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Save stores a copy of body under generationID/name.
func (s *MemoryStore) Save(_ context.Context, generationID, name string, body []byte) error {
	copied := append([]byte(nil), body...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path.Join(generationID, name)] = copied
	return nil
}

// Get returns a stored artifact.
func (s *MemoryStore) Get(generationID, name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.blobs[path.Join(generationID, name)]
	return body, ok
}

var _ domain.ArtifactStore = (*MemoryStore)(nil)
