package mealplan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/mealplan-ai/pkg/errors"
	"github.com/yanqian/mealplan-ai/pkg/metrics"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	// upstream text copied into provider_error messages is capped at this many runes
	maxProviderDetail = 300
)

// Service generates meal plans from patient profiles.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (Result, error)
	Preview(ctx context.Context, raw []byte) (string, error)
	History(ctx context.Context, limit int) ([]GenerationRecord, error)
}

type service struct {
	cfg       Config
	completer Completer
	counter   TokenCounter
	artifacts ArtifactStore
	history   GenerationLog
	logger    *slog.Logger
	now       func() time.Time
}

// NewService is a wire provider for the meal plan domain.
func NewService(cfg Config, completer Completer, counter TokenCounter, artifacts ArtifactStore, history GenerationLog, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		completer: completer,
		counter:   counter,
		artifacts: artifacts,
		history:   history,
		logger:    logger.With("component", "mealplan.service"),
		now:       time.Now,
	}
}

// run tracks one pass through the pipeline.
type run struct {
	stage  Stage
	record GenerationRecord
	usage  metrics.TokenUsage
	logger *slog.Logger
}

func (r *run) enter(stage Stage) {
	r.logger.Debug("stage transition", "from", r.stage, "to", stage)
	r.stage = stage
}

func (s *service) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	started := s.now()
	mode := req.Mode
	if mode == "" {
		mode = ModeSync
	}
	r := &run{
		stage: StageReceived,
		record: GenerationRecord{
			ID:            uuid.NewString(),
			RequestID:     req.RequestID,
			Mode:          mode,
			PromptVersion: PromptVersion,
			CreatedAt:     started.UTC(),
		},
	}
	r.logger = s.logger.With("generation_id", r.record.ID, "request_id", req.RequestID, "mode", mode)

	result, err := s.generate(ctx, r, req.Payload)
	r.record.LatencyMs = s.now().Sub(started).Milliseconds()
	if err != nil {
		r.record.Status = OutcomeFailed
		r.record.FailedStage = r.stage
		r.record.FailureCode = failureCode(err)
		r.enter(StageFailed)
		s.logFailure(r, err)
	} else {
		r.record.Status = OutcomeSucceeded
		r.enter(StageSucceeded)
		result.Duration = time.Duration(r.record.LatencyMs) * time.Millisecond
		r.logger.Info("meal plan generated",
			"model", result.Model,
			"days", r.record.ReturnedDays,
			"prompt_tokens", result.PromptTokens,
			"integrity_violations", len(result.Violations),
			"latency_ms", r.record.LatencyMs,
		)
	}
	s.recordHistory(ctx, r.record)
	return result, err
}

func (s *service) generate(ctx context.Context, r *run, payload []byte) (Result, error) {
	raw := bytes.TrimSpace(payload)
	if IsEmptyPayload(raw) {
		return Result{}, apperrors.Wrap(CodeInvalidInput, NoDataSummary, nil)
	}

	r.enter(StageNormalizing)
	summary := Normalize(raw)
	if profile, ok := DecodeProfile(raw); ok {
		if days, ok := profile.GoalSettings.MealPlanDays.Int(); ok {
			r.record.RequestedDays = days
		}
	}

	r.enter(StageComposing)
	prompt := Compose(summary)
	if s.counter != nil {
		r.record.PromptTokens = s.counter.Count(prompt)
	}
	s.saveArtifact(ctx, r, "prompt.txt", prompt)

	r.enter(StageAwaitingProvider)
	completion, err := s.complete(ctx, prompt)
	if err != nil {
		return Result{}, err
	}
	s.trackCompletion(r, completion)
	s.saveArtifact(ctx, r, "response.txt", completion.Text)

	r.enter(StageDecoding)
	doc, err := Decode(completion.Text)
	for attempt := 1; err != nil && attempt <= s.cfg.RepairAttempts; attempt++ {
		r.logger.Warn("malformed provider answer, sending repair prompt", "attempt", attempt, "error", err)
		r.record.RepairAttempts = attempt
		r.enter(StageAwaitingProvider)
		completion, err = s.complete(ctx, ComposeRepair(prompt, completion.Text, err))
		if err != nil {
			return Result{}, err
		}
		s.trackCompletion(r, completion)
		s.saveArtifact(ctx, r, fmt.Sprintf("response-%d.txt", attempt), completion.Text)
		r.enter(StageDecoding)
		doc, err = Decode(completion.Text)
	}
	if err != nil {
		return Result{}, err
	}

	days := doc.Days()
	r.record.ReturnedDays = len(days)
	if r.record.RequestedDays > 0 && r.record.RequestedDays != len(days) {
		r.logger.Warn("provider returned a different number of days", "requested", r.record.RequestedDays, "returned", len(days))
	}

	violations := doc.IntegrityViolations()
	r.record.Violations = len(violations)
	if len(violations) > 0 {
		r.logger.Warn("meal plan references unknown recipes", "count", len(violations), "first", violations[0].Recipe)
		if s.cfg.RejectInconsistent {
			return Result{}, apperrors.Wrap(CodeInconsistentPlan, "the AI response references recipes it does not define", nil)
		}
	}

	return Result{
		ID:            r.record.ID,
		Document:      doc,
		Violations:    violations,
		Model:         r.record.Model,
		PromptVersion: PromptVersion,
		PromptTokens:  r.record.PromptTokens,
		Usage:         r.usage,
	}, nil
}

// complete issues exactly one provider call under the configured deadline.
func (s *service) complete(ctx context.Context, prompt string) (Completion, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.cfg.ProviderTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	}
	defer cancel()

	completion, err := s.completer.Complete(callCtx, prompt)
	if err != nil {
		return Completion{}, classifyProviderError(ctx, err)
	}
	return completion, nil
}

func classifyProviderError(parent context.Context, err error) error {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return apperrors.Wrap(CodeConfiguration, "completion provider is not configured", err)
	case errors.Is(parent.Err(), context.Canceled):
		return apperrors.Wrap(CodeCanceled, "request canceled before the provider answered", err)
	case errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err):
		return apperrors.Wrap(CodeProviderTimeout, "completion provider timed out", err)
	default:
		return apperrors.Wrap(CodeProviderError, providerFailureMessage(err), err)
	}
}

func providerFailureMessage(err error) string {
	detail := strings.Join(strings.Fields(err.Error()), " ")
	if detail == "" {
		return "completion provider request failed"
	}
	if runes := []rune(detail); len(runes) > maxProviderDetail {
		detail = string(runes[:maxProviderDetail]) + "..."
	}
	return "completion provider request failed: " + detail
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (s *service) trackCompletion(r *run, completion Completion) {
	r.record.Model = completion.Model
	r.usage = r.usage.Add(completion.Usage)
	r.record.CompletionTokens = r.usage.CompletionTokens
	if r.record.PromptTokens == 0 {
		r.record.PromptTokens = completion.Usage.PromptTokens
	}
}

func (s *service) Preview(_ context.Context, raw []byte) (string, error) {
	if IsEmptyPayload(raw) {
		return "", apperrors.Wrap(CodeInvalidInput, NoDataSummary, nil)
	}
	return Normalize(raw), nil
}

func (s *service) History(ctx context.Context, limit int) ([]GenerationRecord, error) {
	if s.history == nil {
		return []GenerationRecord{}, nil
	}
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
		if s.cfg.HistoryLimit > 0 {
			limit = s.cfg.HistoryLimit
		}
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	records, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap("history_error", "failed to load generation history", err)
	}
	if records == nil {
		records = []GenerationRecord{}
	}
	return records, nil
}

func (s *service) saveArtifact(ctx context.Context, r *run, name, body string) {
	if s.artifacts == nil {
		return
	}
	if err := s.artifacts.Save(ctx, r.record.ID, name, []byte(body)); err != nil {
		r.logger.Warn("failed to save artifact", "name", name, "error", err)
	}
}

func (s *service) recordHistory(ctx context.Context, rec GenerationRecord) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to record generation", "generation_id", rec.ID, "error", err)
	}
}

func (s *service) logFailure(r *run, err error) {
	attrs := []any{"code", r.record.FailureCode, "stage", r.record.FailedStage, "error", err}
	switch r.record.FailureCode {
	case CodeInvalidInput, CodeCanceled:
		r.logger.Warn("meal plan generation failed", attrs...)
	default:
		r.logger.Error("meal plan generation failed", attrs...)
	}
}

func failureCode(err error) string {
	if code := apperrors.CodeOf(err); code != "" {
		return code
	}
	return "internal_error"
}
