package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/mealplan-ai/internal/domain/mealplan"
	"github.com/yanqian/mealplan-ai/internal/domain/planjob"
)

// Response headers describing a generated plan.
const (
	headerPlanID         = "X-Plan-Id"
	headerPlanModel      = "X-Plan-Model"
	headerPlanViolations = "X-Plan-Integrity-Violations"
	headerPromptTokens   = "X-Prompt-Tokens"
	headerPromptVersion  = "X-Prompt-Version"
	textPlainContentType = "text/plain; charset=utf-8"
	jsonContentType      = "application/json; charset=utf-8"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	plans  mealplan.Service
	jobs   planjob.Service
	logger *slog.Logger
}

// NewHandler constructs the root HTTP handler. jobs may be nil when async jobs are disabled.
func NewHandler(plans mealplan.Service, jobs planjob.Service, logger *slog.Logger) *Handler {
	return &Handler{
		plans:  plans,
		jobs:   jobs,
		logger: logger.With("component", "http.handler"),
	}
}

// GeneratePlan runs one synchronous generation and returns the decoded document.
func (h *Handler) GeneratePlan(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	result, err := h.plans.Generate(c.Request.Context(), mealplan.GenerateRequest{
		Payload:   body,
		Mode:      mealplan.ModeSync,
		RequestID: requestID(c),
	})
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	headers := c.Writer.Header()
	headers.Set(headerPlanID, result.ID)
	headers.Set(headerPlanModel, result.Model)
	headers.Set(headerPromptVersion, result.PromptVersion)
	headers.Set(headerPlanViolations, strconv.Itoa(len(result.Violations)))
	headers.Set(headerPromptTokens, strconv.Itoa(result.PromptTokens))
	if len(result.Violations) > 0 {
		h.logger.Warn("plan returned with dangling recipe references",
			"generation_id", result.ID,
			"violations", len(result.Violations),
			"subject", subject(c),
		)
	}
	c.Data(http.StatusOK, jsonContentType, result.Document.Raw())
}

// PreviewProfile returns the normalized profile summary as plain text.
func (h *Handler) PreviewProfile(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	summary, err := h.plans.Preview(c.Request.Context(), body)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.Data(http.StatusOK, textPlainContentType, []byte(summary))
}

type jobSubmittedResponse struct {
	JobID  string         `json:"jobId"`
	Status planjob.Status `json:"status"`
}

type jobStatusResponse struct {
	JobID        string             `json:"jobId"`
	Status       planjob.Status     `json:"status"`
	Result       *mealplan.Document `json:"result,omitempty"`
	GenerationID string             `json:"generationId,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	ErrorCode    string             `json:"errorCode,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// SubmitPlanJob queues an asynchronous generation.
func (h *Handler) SubmitPlanJob(c *gin.Context) {
	if h.jobs == nil {
		abortWithError(c, NewHTTPError(http.StatusServiceUnavailable, planjob.CodeJobsDisabled, "async meal plan jobs are disabled", nil))
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	job, err := h.jobs.Submit(c.Request.Context(), body, requestID(c))
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusAccepted, jobSubmittedResponse{JobID: job.ID, Status: job.Status})
}

// PlanJobStatus reports the progress of an asynchronous generation.
func (h *Handler) PlanJobStatus(c *gin.Context) {
	if h.jobs == nil {
		abortWithError(c, NewHTTPError(http.StatusServiceUnavailable, planjob.CodeJobsDisabled, "async meal plan jobs are disabled", nil))
		return
	}
	job, err := h.jobs.Status(c.Request.Context(), c.Query("jobId"))
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, jobStatusResponse{
		JobID:        job.ID,
		Status:       job.Status,
		Result:       job.Result,
		GenerationID: job.GenerationID,
		ErrorMessage: job.ErrorMessage,
		ErrorCode:    job.ErrorCode,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	})
}

// PlanHistory lists recent generations, newest first.
func (h *Handler) PlanHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, mealplan.CodeInvalidInput, "limit must be a non-negative integer", err))
			return
		}
		limit = parsed
	}
	records, err := h.plans.History(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"generations": records})
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "promptVersion": mealplan.PromptVersion})
}

func readBody(c *gin.Context) ([]byte, bool) {
	if c.Request.Body == nil {
		return nil, true
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, "payload_too_large", "request body is too large", err))
			return nil, false
		}
		abortWithError(c, NewHTTPError(http.StatusBadRequest, mealplan.CodeInvalidInput, "failed to read request body", err))
		return nil, false
	}
	return body, true
}
