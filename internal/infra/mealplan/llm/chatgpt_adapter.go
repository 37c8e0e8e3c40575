package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/yanqian/mealplan-ai/internal/domain/mealplan"
	"github.com/yanqian/mealplan-ai/internal/infra/llm/chatgpt"
	"github.com/yanqian/mealplan-ai/pkg/metrics"
)

// ChatClient is the subset of the ChatGPT client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// ChatGPTCompleter adapts the ChatGPT client to the meal plan domain.
type ChatGPTCompleter struct {
	client      ChatClient
	model       string
	temperature float32
	jsonMode    bool
}

// NewChatGPTCompleter constructs the adapter. jsonMode asks the API for a JSON object answer.
func NewChatGPTCompleter(client ChatClient, model string, temperature float32, jsonMode bool) *ChatGPTCompleter {
	return &ChatGPTCompleter{client: client, model: model, temperature: temperature, jsonMode: jsonMode}
}

// Complete sends the prompt as a single user message.
func (c *ChatGPTCompleter) Complete(ctx context.Context, prompt string) (domain.Completion, error) {
	req := chatgpt.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    []chatgpt.Message{{Role: "user", Content: prompt}},
	}
	if c.jsonMode {
		req.ResponseFormat = &chatgpt.ResponseFormat{Type: "json_object"}
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(err, chatgpt.ErrMissingAPIKey) {
			return domain.Completion{}, fmt.Errorf("openai: %w", domain.ErrMissingCredential)
		}
		return domain.Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return domain.Completion{}, errors.New("chatgpt returned no choices")
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	return domain.Completion{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model: model,
		Usage: metrics.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

var _ domain.Completer = (*ChatGPTCompleter)(nil)
