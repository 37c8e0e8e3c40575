package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	domain "github.com/yanqian/mealplan-ai/internal/domain/mealplan"
)

// LocalStore writes artifacts below a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore constructs the store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Save writes body to dir/generationID/name.
func (s *LocalStore) Save(ctx context.Context, generationID, name string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.pathFor(generationID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(target, body, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

func (s *LocalStore) pathFor(generationID, name string) (string, error) {
	if !validSegment(generationID) || !validSegment(name) {
		return "", fmt.Errorf("invalid artifact key %q/%q", generationID, name)
	}
	return filepath.Join(s.dir, generationID, name), nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

var _ domain.ArtifactStore = (*LocalStore)(nil)
