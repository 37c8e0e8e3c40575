package genlog

import (
	domain "github.com/yanqian/mealplan-ai/internal/domain/mealplan"
)

const columns = `id, request_id, mode, status, failure_code, failed_stage, model, prompt_version,
	prompt_tokens, completion_tokens, requested_days, returned_days, integrity_violations,
	repair_attempts, latency_ms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func recordArgs(rec domain.GenerationRecord) []any {
	return []any{
		rec.ID, rec.RequestID, string(rec.Mode), rec.Status, rec.FailureCode, string(rec.FailedStage),
		rec.Model, rec.PromptVersion, rec.PromptTokens, rec.CompletionTokens, rec.RequestedDays,
		rec.ReturnedDays, rec.Violations, rec.RepairAttempts, rec.LatencyMs, rec.CreatedAt.UTC(),
	}
}

func scanRecord(row rowScanner) (domain.GenerationRecord, error) {
	var (
		rec   domain.GenerationRecord
		mode  string
		stage string
	)
	err := row.Scan(
		&rec.ID, &rec.RequestID, &mode, &rec.Status, &rec.FailureCode, &stage,
		&rec.Model, &rec.PromptVersion, &rec.PromptTokens, &rec.CompletionTokens, &rec.RequestedDays,
		&rec.ReturnedDays, &rec.Violations, &rec.RepairAttempts, &rec.LatencyMs, &rec.CreatedAt,
	)
	if err != nil {
		return domain.GenerationRecord{}, err
	}
	rec.Mode = domain.Mode(mode)
	rec.FailedStage = domain.Stage(stage)
	return rec, nil
}
