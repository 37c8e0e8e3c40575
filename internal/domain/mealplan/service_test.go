package mealplan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/mealplan-ai/pkg/errors"
	"github.com/yanqian/mealplan-ai/pkg/metrics"
)

func TestService_GenerateSuccess(t *testing.T) {
	completer := &stubCompleter{responses: []string{threeDayPlan}}
	artifacts := &recordingArtifacts{}
	history := &recordingHistory{}
	svc := newServiceUnderTest(Config{}, completer, artifacts, history)

	result, err := svc.Generate(context.Background(), GenerateRequest{Payload: []byte(threeDayProfile), RequestID: "req-1"})
	require.NoError(t, err)

	require.Equal(t, []string{"Day 1", "Day 2", "Day 3"}, result.Document.Days())
	require.Empty(t, result.Violations)
	require.Equal(t, "stub-model", result.Model)
	require.Equal(t, PromptVersion, result.PromptVersion)
	require.Equal(t, 42, result.PromptTokens)
	require.Equal(t, metrics.TokenUsage{PromptTokens: 40, CompletionTokens: 60, TotalTokens: 100}, result.Usage)
	require.NotEmpty(t, result.ID)

	require.Len(t, completer.prompts, 1)
	require.Equal(t, Compose(Normalize([]byte(threeDayProfile))), completer.prompts[0])

	require.Equal(t, []string{result.ID + "/prompt.txt", result.ID + "/response.txt"}, artifacts.keys())

	rec := history.only(t)
	require.Equal(t, result.ID, rec.ID)
	require.Equal(t, "req-1", rec.RequestID)
	require.Equal(t, ModeSync, rec.Mode)
	require.Equal(t, OutcomeSucceeded, rec.Status)
	require.Equal(t, 3, rec.RequestedDays)
	require.Equal(t, 3, rec.ReturnedDays)
	require.Equal(t, 60, rec.CompletionTokens)
	require.Empty(t, rec.FailureCode)
}

func TestService_GenerateFailures(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		completer *stubCompleter
		payload   string
		wantCode  string
		wantStage Stage
		wantCalls int
	}{
		{
			name:      "empty payload",
			completer: &stubCompleter{},
			payload:   "  {} ",
			wantCode:  CodeInvalidInput,
			wantStage: StageReceived,
		},
		{
			name:      "missing credential",
			completer: &stubCompleter{err: fmt.Errorf("openai: %w", ErrMissingCredential)},
			payload:   threeDayProfile,
			wantCode:  CodeConfiguration,
			wantStage: StageAwaitingProvider,
			wantCalls: 1,
		},
		{
			name:      "upstream error",
			completer: &stubCompleter{err: errors.New("chatgpt request failed: status=429 body=rate limited")},
			payload:   threeDayProfile,
			wantCode:  CodeProviderError,
			wantStage: StageAwaitingProvider,
			wantCalls: 1,
		},
		{
			name:      "provider timeout",
			cfg:       Config{ProviderTimeout: 20 * time.Millisecond},
			completer: &stubCompleter{block: true},
			payload:   threeDayProfile,
			wantCode:  CodeProviderTimeout,
			wantStage: StageAwaitingProvider,
			wantCalls: 1,
		},
		{
			name:      "malformed output is not retried by default",
			completer: &stubCompleter{responses: []string{"Here is your plan!"}},
			payload:   threeDayProfile,
			wantCode:  CodeMalformedOutput,
			wantStage: StageDecoding,
			wantCalls: 1,
		},
		{
			name:      "strict integrity",
			cfg:       Config{RejectInconsistent: true},
			completer: &stubCompleter{responses: []string{danglingPlan}},
			payload:   threeDayProfile,
			wantCode:  CodeInconsistentPlan,
			wantStage: StageDecoding,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			history := &recordingHistory{}
			svc := newServiceUnderTest(tt.cfg, tt.completer, nil, history)

			_, err := svc.Generate(context.Background(), GenerateRequest{Payload: []byte(tt.payload)})
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, tt.wantCode), "got %v", err)
			require.Len(t, tt.completer.prompts, tt.wantCalls)

			rec := history.only(t)
			require.Equal(t, OutcomeFailed, rec.Status)
			require.Equal(t, tt.wantCode, rec.FailureCode)
			require.Equal(t, tt.wantStage, rec.FailedStage)
		})
	}
}

func TestService_GenerateCanceled(t *testing.T) {
	completer := &stubCompleter{block: true}
	svc := newServiceUnderTest(Config{ProviderTimeout: time.Minute}, completer, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := svc.Generate(ctx, GenerateRequest{Payload: []byte(threeDayProfile)})
	require.True(t, apperrors.IsCode(err, CodeCanceled), "got %v", err)
}

func TestService_GenerateSoftIntegrityViolation(t *testing.T) {
	svc := newServiceUnderTest(Config{}, &stubCompleter{responses: []string{danglingPlan}}, nil, nil)

	result, err := svc.Generate(context.Background(), GenerateRequest{Payload: []byte(threeDayProfile)})
	require.NoError(t, err)
	require.Equal(t, []IntegrityViolation{{Day: "Day 1", Slot: "Dinner", Recipe: "Mystery Stew"}}, result.Violations)
	require.False(t, result.Document.HasReferentialIntegrity())
}

func TestService_GenerateRepairAttempt(t *testing.T) {
	completer := &stubCompleter{responses: []string{`{"meal_plan": {`, threeDayPlan}}
	artifacts := &recordingArtifacts{}
	history := &recordingHistory{}
	svc := newServiceUnderTest(Config{RepairAttempts: 2}, completer, artifacts, history)

	result, err := svc.Generate(context.Background(), GenerateRequest{Payload: []byte(threeDayProfile), Mode: ModeJob})
	require.NoError(t, err)
	require.Len(t, result.Document.Days(), 3)

	require.Len(t, completer.prompts, 2)
	require.True(t, strings.HasPrefix(completer.prompts[1], completer.prompts[0]))
	require.Contains(t, completer.prompts[1], "Your previous answer could not be used")

	require.Equal(t, []string{
		result.ID + "/prompt.txt",
		result.ID + "/response.txt",
		result.ID + "/response-1.txt",
	}, artifacts.keys())
	require.Equal(t, `{"meal_plan": {`, artifacts.body(result.ID+"/response.txt"))

	rec := history.only(t)
	require.Equal(t, 1, rec.RepairAttempts)
	require.Equal(t, ModeJob, rec.Mode)
	require.Equal(t, 120, rec.CompletionTokens)
}

func TestService_RepairDoesNotRetryProviderErrors(t *testing.T) {
	completer := &stubCompleter{responses: []string{"nope"}, errAfter: 1, err: errors.New("upstream 500")}
	svc := newServiceUnderTest(Config{RepairAttempts: 3}, completer, nil, nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{Payload: []byte(threeDayProfile)})
	require.True(t, apperrors.IsCode(err, CodeProviderError), "got %v", err)
	require.Len(t, completer.prompts, 2)
}

func TestService_ArtifactFailureIsNotFatal(t *testing.T) {
	artifacts := &recordingArtifacts{err: errors.New("disk full")}
	svc := newServiceUnderTest(Config{}, &stubCompleter{responses: []string{threeDayPlan}}, artifacts, nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{Payload: []byte(threeDayProfile)})
	require.NoError(t, err)
}

func TestService_Preview(t *testing.T) {
	svc := newServiceUnderTest(Config{}, &stubCompleter{}, nil, nil)

	summary, err := svc.Preview(context.Background(), []byte(fullProfile))
	require.NoError(t, err)
	require.Equal(t, Normalize([]byte(fullProfile)), summary)

	_, err = svc.Preview(context.Background(), []byte("  "))
	require.True(t, apperrors.IsCode(err, CodeInvalidInput))
}

func TestService_HistoryLimits(t *testing.T) {
	history := &recordingHistory{}
	svc := newServiceUnderTest(Config{HistoryLimit: 5}, &stubCompleter{}, nil, history)

	for _, tc := range []struct{ in, want int }{{0, 5}, {-1, 5}, {7, 7}, {1000, maxHistoryLimit}} {
		_, err := svc.History(context.Background(), tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, history.lastLimit)
	}

	history.err = errors.New("db down")
	_, err := svc.History(context.Background(), 1)
	require.Error(t, err)
}

const threeDayProfile = `{"personal_info":{"age":40},"goal_settings":{"meal_plan_days":3,"meals_per_day":3}}`

const threeDayPlan = `{
  "meal_plan": {
    "Day 1": {"Breakfast": "Oatmeal", "Lunch": "Lentil Soup", "Dinner": "Baked Salmon"},
    "Day 2": {"Breakfast": "Oatmeal", "Lunch": "Lentil Soup", "Dinner": "Baked Salmon"},
    "Day 3": {"Breakfast": "Oatmeal", "Lunch": "Lentil Soup", "Dinner": "Baked Salmon"}
  },
  "nutritional_info": {"daily_totals": {"calories": "1800 kcal"}, "notes": "Balanced."},
  "shopping_list": [{"ingredient": "Oats", "quantity": "3 cups"}],
  "recipes": {
    "Oatmeal": {"ingredients": [{"item": "Oats", "quantity": "1 cup"}], "instructions": "Simmer for 5 minutes."},
    "Lentil Soup": {"ingredients": [{"item": "Lentils", "quantity": "1/2 cup"}], "instructions": "Simmer for 25 minutes."},
    "Baked Salmon": {"ingredients": [{"item": "Salmon", "quantity": "150 g"}], "instructions": "Bake at 200C for 12 minutes."}
  }
}`

const danglingPlan = `{"meal_plan":{"Day 1":{"Breakfast":"Oatmeal","Dinner":"Mystery Stew"}},"recipes":{"Oatmeal":{"ingredients":[],"instructions":"Cook."}}}`

func newServiceUnderTest(cfg Config, completer Completer, artifacts ArtifactStore, history GenerationLog) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(cfg, completer, fixedCounter(42), artifacts, history, logger)
}

type fixedCounter int

func (c fixedCounter) Count(string) int { return int(c) }

type stubCompleter struct {
	mu        sync.Mutex
	responses []string
	err       error
	errAfter  int
	block     bool
	prompts   []string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (Completion, error) {
	s.mu.Lock()
	call := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return Completion{}, fmt.Errorf("request chat completion: %w", ctx.Err())
	}
	if s.err != nil && call >= s.errAfter {
		return Completion{}, s.err
	}
	text := ""
	if call < len(s.responses) {
		text = s.responses[call]
	}
	return Completion{
		Text:  text,
		Model: "stub-model",
		Usage: metrics.TokenUsage{PromptTokens: 40, CompletionTokens: 60, TotalTokens: 100},
	}, nil
}

type recordingArtifacts struct {
	mu     sync.Mutex
	saved  []string
	bodies map[string]string
	err    error
}

func (a *recordingArtifacts) Save(_ context.Context, generationID, name string, body []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := generationID + "/" + name
	a.saved = append(a.saved, key)
	if a.bodies == nil {
		a.bodies = map[string]string{}
	}
	a.bodies[key] = string(body)
	return a.err
}

func (a *recordingArtifacts) body(key string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bodies[key]
}

func (a *recordingArtifacts) keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.saved...)
}

type recordingHistory struct {
	mu        sync.Mutex
	records   []GenerationRecord
	lastLimit int
	err       error
}

func (h *recordingHistory) Record(_ context.Context, rec GenerationRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return nil
}

func (h *recordingHistory) Recent(_ context.Context, limit int) ([]GenerationRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastLimit = limit
	if h.err != nil {
		return nil, h.err
	}
	return h.records, nil
}

func (h *recordingHistory) only(t *testing.T) GenerationRecord {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.records, 1)
	return h.records[0]
}

func TestProviderFailureMessage(t *testing.T) {
	err := classifyProviderError(context.Background(), errors.New("chatgpt request failed: status=429\n  body=Rate limit reached for o3-mini"))
	require.True(t, apperrors.IsCode(err, CodeProviderError))
	require.Equal(t, "completion provider request failed: chatgpt request failed: status=429 body=Rate limit reached for o3-mini", apperrors.MessageOf(err))

	long := classifyProviderError(context.Background(), errors.New(strings.Repeat("x", 1000)))
	msg := apperrors.MessageOf(long)
	require.True(t, strings.HasSuffix(msg, "..."))
	require.Len(t, msg, len("completion provider request failed: ")+maxProviderDetail+len("..."))
}
