package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/mealplan-ai/internal/domain/planjob"
)

func TestMemoryStore_SaveGet(t *testing.T) {
	s := NewMemoryStore(2, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, planjob.Job{ID: "a", Status: planjob.StatusQueued}))
	require.NoError(t, s.Save(ctx, planjob.Job{ID: "a", Status: planjob.StatusProcessing}))

	job, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, planjob.StatusProcessing, job.Status)

	_, ok, err = s.Get(ctx, "b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStore_EvictsBeyondCapacity(t *testing.T) {
	s := NewMemoryStore(2, time.Hour)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(ctx, planjob.Job{ID: id}))
	}
	_, ok, _ := s.Get(ctx, "a")
	require.False(t, ok)
	_, ok, _ = s.Get(ctx, "c")
	require.True(t, ok)
}

func TestMemoryStore_Expires(t *testing.T) {
	s := NewMemoryStore(10, 20*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, planjob.Job{ID: "a"}))

	require.Eventually(t, func() bool {
		_, ok, _ := s.Get(ctx, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
