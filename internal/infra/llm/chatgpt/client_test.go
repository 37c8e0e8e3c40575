package chatgpt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateChatCompletion_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "o3-mini", req.Model)
		require.Len(t, req.Messages, 1)
		require.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"o3-mini-2025","choices":[{"message":{"role":"assistant","content":"{}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`))
	}))
	defer server.Close()

	client := NewClient(func() string { return "sk-test" }, server.URL+"/v1/", nil)
	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model:    "o3-mini",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	require.Equal(t, "o3-mini-2025", resp.Model)
	require.Equal(t, "{}", resp.Choices[0].Message.Content)
	require.Equal(t, Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}, resp.Usage)
}

func TestCreateChatCompletion_MissingKeySkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	for _, key := range []func() string{nil, func() string { return "  " }} {
		client := NewClient(key, server.URL, nil)
		_, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "o3-mini"})
		require.ErrorIs(t, err, ErrMissingAPIKey)
	}
	require.Zero(t, hits.Load())
}

func TestCreateChatCompletion_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer server.Close()

	client := NewClient(func() string { return "sk-test" }, server.URL, nil)
	_, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "o3-mini"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, "Rate limit reached", apiErr.Message)
	require.Equal(t, "chatgpt request failed: status=429 message=Rate limit reached", err.Error())
}

func TestCreateChatCompletion_PlainTextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable\n"))
	}))
	defer server.Close()

	client := NewClient(func() string { return "sk-test" }, server.URL, nil)
	_, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "o3-mini"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Empty(t, apiErr.Message)
	require.Equal(t, "upstream unavailable", apiErr.Body)
}
