package planjob

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/mealplan-ai/internal/domain/mealplan"
	apperrors "github.com/yanqian/mealplan-ai/pkg/errors"
	"github.com/yanqian/mealplan-ai/pkg/util"
)

// Service accepts generation jobs and reports their progress.
type Service interface {
	Submit(ctx context.Context, payload []byte, requestID string) (Job, error)
	Status(ctx context.Context, id string) (Job, error)
	Process(ctx context.Context, id string) error
}

type service struct {
	store     Store
	queue     Queue
	generator Generator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the job service.
func NewService(store Store, queue Queue, generator Generator, logger *slog.Logger) Service {
	return &service{
		store:     store,
		queue:     queue,
		generator: generator,
		logger:    logger.With("component", "planjob.service"),
		now:       util.NowUTC,
	}
}

// Submit stores a queued job and hands its id to the queue.
func (s *service) Submit(ctx context.Context, payload []byte, requestID string) (Job, error) {
	raw := bytes.TrimSpace(payload)
	if mealplan.IsEmptyPayload(raw) {
		return Job{}, apperrors.Wrap(mealplan.CodeInvalidInput, mealplan.NoDataSummary, nil)
	}
	now := s.now()
	job := Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		RequestID: requestID,
		Payload:   append([]byte(nil), raw...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, job); err != nil {
		return Job{}, apperrors.Wrap(CodeStoreError, "failed to store job", err)
	}
	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		s.logger.Error("enqueue failed", "job_id", job.ID, "error", err)
		job = s.finish(job, StatusError)
		job.ErrorCode = CodeQueueUnavailable
		job.ErrorMessage = "job queue unavailable"
		if saveErr := s.store.Save(context.WithoutCancel(ctx), job); saveErr != nil {
			s.logger.Warn("failed to mark job as errored", "job_id", job.ID, "error", saveErr)
		}
		return Job{}, apperrors.Wrap(CodeQueueUnavailable, "job queue unavailable", err)
	}
	s.logger.Info("meal plan job queued", "job_id", job.ID, "request_id", requestID)
	job.Payload = nil
	return job, nil
}

// Status returns the current job record without its payload.
func (s *service) Status(ctx context.Context, id string) (Job, error) {
	if id == "" {
		return Job{}, apperrors.Wrap(mealplan.CodeInvalidInput, "jobId is required", nil)
	}
	job, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return Job{}, apperrors.Wrap(CodeStoreError, "failed to load job", err)
	}
	if !ok {
		return Job{}, apperrors.Wrap(CodeNotFound, fmt.Sprintf("job %s not found", id), nil)
	}
	job.Payload = nil
	return job, nil
}

// Process runs a queued job to completion. It is the queue handler.
func (s *service) Process(ctx context.Context, id string) error {
	logger := s.logger.With("job_id", id)
	job, ok, err := s.store.Get(ctx, id)
	if err != nil {
		logger.Error("load job failed", "error", err)
		return err
	}
	if !ok {
		logger.Warn("job expired before processing")
		return apperrors.Wrap(CodeNotFound, fmt.Sprintf("job %s not found", id), nil)
	}
	if job.Status != StatusQueued {
		logger.Debug("job already picked up", "status", job.Status)
		return nil
	}

	job.Status = StatusProcessing
	job.UpdatedAt = s.now()
	if err := s.store.Save(ctx, job); err != nil {
		logger.Error("mark processing failed", "error", err)
		return err
	}

	result, genErr := s.generator.Generate(ctx, mealplan.GenerateRequest{
		Payload:   job.Payload,
		Mode:      mealplan.ModeJob,
		RequestID: job.RequestID,
	})
	if genErr != nil {
		job = s.finish(job, StatusError)
		job.ErrorCode = apperrors.CodeOf(genErr)
		job.ErrorMessage = apperrors.MessageOf(genErr)
		logger.Warn("meal plan job failed", "code", job.ErrorCode, "error", genErr)
	} else {
		job = s.finish(job, StatusCompleted)
		doc := result.Document
		job.Result = &doc
		job.GenerationID = result.ID
		job.Violations = len(result.Violations)
		logger.Info("meal plan job completed", "generation_id", result.ID)
	}
	if err := s.store.Save(context.WithoutCancel(ctx), job); err != nil {
		logger.Error("store job result failed", "error", err)
		return err
	}
	return nil
}

func (s *service) finish(job Job, status Status) Job {
	job.Status = status
	job.Payload = nil
	job.UpdatedAt = s.now()
	return job
}
