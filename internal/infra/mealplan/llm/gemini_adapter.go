package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	domain "github.com/yanqian/mealplan-ai/internal/domain/mealplan"
	"github.com/yanqian/mealplan-ai/pkg/metrics"
)

// GeminiCompleter calls the Gemini API through the genai SDK.
// The SDK client is built lazily so a missing key never reaches it.
type GeminiCompleter struct {
	apiKey      func() string
	model       string
	temperature float32
	baseURL     string

	mu        sync.Mutex
	client    *genai.Client
	clientKey string
}

// NewGeminiCompleter constructs the adapter.
func NewGeminiCompleter(apiKey func() string, model string, temperature float32, baseURL string) *GeminiCompleter {
	return &GeminiCompleter{apiKey: apiKey, model: model, temperature: temperature, baseURL: strings.TrimSpace(baseURL)}
}

// Complete requests a JSON answer for the prompt.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (domain.Completion, error) {
	key := ""
	if g.apiKey != nil {
		key = strings.TrimSpace(g.apiKey())
	}
	if key == "" {
		return domain.Completion{}, fmt.Errorf("gemini: %w", domain.ErrMissingCredential)
	}
	client, err := g.clientFor(ctx, key)
	if err != nil {
		return domain.Completion{}, err
	}

	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if g.temperature > 0 {
		cfg.Temperature = genai.Ptr(g.temperature)
	}
	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return domain.Completion{}, errors.New("gemini returned no candidates")
	}

	out := domain.Completion{Text: strings.TrimSpace(resp.Text()), Model: g.model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if meta := resp.UsageMetadata; meta != nil {
		out.Usage = metrics.TokenUsage{
			PromptTokens:     int(meta.PromptTokenCount),
			CompletionTokens: int(meta.CandidatesTokenCount),
			TotalTokens:      int(meta.TotalTokenCount),
		}
	}
	return out, nil
}

func (g *GeminiCompleter) clientFor(ctx context.Context, key string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil && g.clientKey == key {
		return g.client, nil
	}
	cc := &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI}
	if g.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g.client, g.clientKey = client, key
	return client, nil
}

var _ domain.Completer = (*GeminiCompleter)(nil)
