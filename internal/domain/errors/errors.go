package errors

import (
	"errors"
	"fmt"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeBusiness   ErrorType = "business"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeExternal   ErrorType = "external"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeAgent      ErrorType = "agent"
	ErrorTypeTimeout    ErrorType = "timeout"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by type and code so copies produced by
// WithDetails and WithCause still satisfy errors.Is against their
// sentinel.
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == other.Type && e.Code == other.Code
}

// WithDetails returns a copy of the error carrying the given details.
// The receiver is never modified, keeping package-level sentinels
// immutable and safe to share across goroutines.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	c := e.clone()
	c.Details = details
	return c
}

// WithCause returns a copy of the error wrapping the given cause
func (e *AppError) WithCause(cause error) *AppError {
	c := e.clone()
	c.Cause = cause
	return c
}

func (e *AppError) clone() *AppError {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       "CONFLICT",
		Message:    message,
		Retryable:  true,
		StatusCode: 409,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

// NewAgentError marks a failure inside a domain agent execution. Agent
// failures degrade the investigation instead of failing it.
func NewAgentError(domain, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAgent,
		Code:       "AGENT_EXECUTION_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 502,
		Details:    map[string]interface{}{"agent_domain": domain},
	}
}

func NewTimeoutError(operation string) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Code:       "OPERATION_TIMEOUT",
		Message:    fmt.Sprintf("%s timed out", operation),
		Retryable:  true,
		StatusCode: 504,
	}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    message,
		Retryable:  true,
		StatusCode: 429,
	}
}

// Predefined common errors
var (
	ErrInvestigationNotFound = NewNotFoundError("investigation")
	ErrResultNotReady        = NewBusinessError("RESULT_NOT_READY", "Investigation has not reached a terminal state")
	ErrNoSuccessfulAgents    = NewBusinessError("NO_SUCCESSFUL_AGENTS", "No agent produced a successful result")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
