package planjob

import (
	"context"
	"time"

	"github.com/yanqian/mealplan-ai/internal/domain/mealplan"
)

// Status is the lifecycle state of a job, spelled the way polling clients expect.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Error codes surfaced by the job API.
const (
	CodeNotFound         = "not_found"
	CodeJobsDisabled     = "jobs_disabled"
	CodeQueueUnavailable = "queue_unavailable"
	CodeStoreError       = "job_store_error"
)

// Job is one asynchronous generation.
type Job struct {
	ID           string             `json:"jobId"`
	Status       Status             `json:"status"`
	RequestID    string             `json:"requestId,omitempty"`
	Payload      []byte             `json:"payload,omitempty"`
	GenerationID string             `json:"generationId,omitempty"`
	Result       *mealplan.Document `json:"result,omitempty"`
	Violations   int                `json:"integrityViolations,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	ErrorCode    string             `json:"errorCode,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// Store persists jobs.
type Store interface {
	Save(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, bool, error)
}

// Queue delivers job ids to a worker.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
}

// Generator runs one meal plan generation.
type Generator interface {
	Generate(ctx context.Context, req mealplan.GenerateRequest) (mealplan.Result, error)
}
