package mealplan

import "errors"

// Failure kinds surfaced by the plan pipeline. They double as AppError codes.
const (
	CodeInvalidInput     = "invalid_input"
	CodeConfiguration    = "configuration_error"
	CodeProviderError    = "provider_error"
	CodeProviderTimeout  = "provider_timeout"
	CodeMalformedOutput  = "malformed_output"
	CodeInconsistentPlan = "inconsistent_plan"
	CodeCanceled         = "request_canceled"
)

// ErrMissingCredential is returned by completers when no provider credential is available.
var ErrMissingCredential = errors.New("completion provider credential is not configured")
