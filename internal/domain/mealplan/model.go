package mealplan

import (
	"context"
	"time"

	"github.com/yanqian/mealplan-ai/pkg/metrics"
)

// Config tunes the generation pipeline.
type Config struct {
	// ProviderTimeout bounds a single provider round trip. Zero disables the bound.
	ProviderTimeout time.Duration
	// RepairAttempts is the number of corrective follow-up prompts sent after a malformed answer.
	RepairAttempts int
	// RejectInconsistent fails plans whose meal slots reference unknown recipes.
	RejectInconsistent bool
	// HistoryLimit is the history page size used when the caller gives none.
	HistoryLimit int
}

// Completer submits a prompt to a completion provider and returns the full answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// Completion is a provider answer.
type Completion struct {
	Text  string
	Model string
	Usage metrics.TokenUsage
}

// CredentialSource resolves the provider credential when a call is made.
type CredentialSource func() string

// TokenCounter estimates prompt size in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// ArtifactStore keeps debug copies of prompts and answers.
type ArtifactStore interface {
	Save(ctx context.Context, generationID, name string, body []byte) error
}

// GenerationLog records the outcome of each generation.
type GenerationLog interface {
	Record(ctx context.Context, rec GenerationRecord) error
	Recent(ctx context.Context, limit int) ([]GenerationRecord, error)
}

// Mode tells how a generation was requested.
type Mode string

const (
	ModeSync Mode = "sync"
	ModeJob  Mode = "job"
)

// Stage is a step of the generation pipeline.
type Stage string

const (
	StageReceived         Stage = "received"
	StageNormalizing      Stage = "normalizing"
	StageComposing        Stage = "composing"
	StageAwaitingProvider Stage = "awaiting_provider"
	StageDecoding         Stage = "decoding"
	StageSucceeded        Stage = "succeeded"
	StageFailed           Stage = "failed"
)

// Outcome values stored in generation records.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// GenerateRequest carries the raw profile payload.
type GenerateRequest struct {
	Payload   []byte
	Mode      Mode
	RequestID string
}

// Result is a successful generation.
type Result struct {
	ID            string
	Document      Document
	Violations    []IntegrityViolation
	Model         string
	PromptVersion string
	PromptTokens  int
	Usage         metrics.TokenUsage
	Duration      time.Duration
}

// GenerationRecord is one entry of the generation history.
type GenerationRecord struct {
	ID               string    `json:"id"`
	RequestID        string    `json:"requestId,omitempty"`
	Mode             Mode      `json:"mode"`
	Status           string    `json:"status"`
	FailureCode      string    `json:"failureCode,omitempty"`
	FailedStage      Stage     `json:"failedStage,omitempty"`
	Model            string    `json:"model,omitempty"`
	PromptVersion    string    `json:"promptVersion"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	RequestedDays    int       `json:"requestedDays,omitempty"`
	ReturnedDays     int       `json:"returnedDays"`
	Violations       int       `json:"integrityViolations"`
	RepairAttempts   int       `json:"repairAttempts"`
	LatencyMs        int64     `json:"latencyMs"`
	CreatedAt        time.Time `json:"createdAt"`
}
