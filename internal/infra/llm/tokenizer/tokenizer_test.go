package tokenizer

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type runeEncoder struct{}

func (runeEncoder) Encode(text string, _ []string, _ []string) []int {
	return make([]int, len([]rune(text)))
}

func TestCounter_FallsBackToWordCount(t *testing.T) {
	c := NewCounter("o3-mini", slog.New(slog.NewTextHandler(io.Discard, nil)))
	calls := 0
	c.load = func(string) (encoder, error) {
		calls++
		return nil, errors.New("offline")
	}

	require.Equal(t, 4, c.Count("Below is the patient's data"))
	require.Equal(t, 2, c.Count("  two\nwords "))
	require.Equal(t, 1, calls)
}

func TestCounter_UsesEncoder(t *testing.T) {
	c := NewCounter("o3-mini", nil)
	c.load = func(model string) (encoder, error) {
		require.Equal(t, "o3-mini", model)
		return runeEncoder{}, nil
	}

	require.Equal(t, 5, c.Count("héllo"))
	require.Zero(t, c.Count(""))
	require.Equal(t, 10, c.Count(strings.Repeat("a", 10)))
}
