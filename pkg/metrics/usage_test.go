package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenUsageAdd(t *testing.T) {
	var total TokenUsage
	require.True(t, total.IsZero())

	total = total.Add(TokenUsage{PromptTokens: 100, CompletionTokens: 40})
	require.Equal(t, TokenUsage{PromptTokens: 100, CompletionTokens: 40, TotalTokens: 140}, total)

	total = total.Add(TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	require.Equal(t, TokenUsage{PromptTokens: 110, CompletionTokens: 45, TotalTokens: 155}, total)
}
