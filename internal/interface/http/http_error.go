package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/mealplan-ai/internal/domain/auth"
	"github.com/yanqian/mealplan-ai/internal/domain/mealplan"
	"github.com/yanqian/mealplan-ai/internal/domain/planjob"
	apperrors "github.com/yanqian/mealplan-ai/pkg/errors"
)

// StatusClientClosedRequest is the non-standard status logged when the caller went away.
const StatusClientClosedRequest = 499

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

var statusByCode = map[string]int{
	mealplan.CodeInvalidInput:     http.StatusBadRequest,
	mealplan.CodeConfiguration:    http.StatusInternalServerError,
	mealplan.CodeProviderError:    http.StatusInternalServerError,
	mealplan.CodeMalformedOutput:  http.StatusInternalServerError,
	mealplan.CodeInconsistentPlan: http.StatusInternalServerError,
	mealplan.CodeProviderTimeout:  http.StatusGatewayTimeout,
	mealplan.CodeCanceled:         StatusClientClosedRequest,
	planjob.CodeNotFound:          http.StatusNotFound,
	planjob.CodeJobsDisabled:      http.StatusServiceUnavailable,
	planjob.CodeQueueUnavailable:  http.StatusServiceUnavailable,
	auth.CodeInvalidToken:         http.StatusUnauthorized,
}

// fromDomainError maps an AppError code to its HTTP status. Unknown codes are 500.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	if code == "" {
		return asHTTPError(err)
	}
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return NewHTTPError(status, code, apperrors.MessageOf(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
