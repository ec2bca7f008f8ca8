package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Dataset errors
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrEmptyDataset    = errors.New("dataset contains no data")
	ErrMalformedCSV    = errors.New("malformed CSV content")
	ErrNotCSV          = errors.New("only CSV files are supported")

	// Analysis lifecycle errors
	ErrAnalysisInProgress = errors.New("analysis already in progress for this dataset")
	ErrAnalysisNotFound   = errors.New("no analysis found for this dataset")
	ErrRecordStuck        = errors.New("analysis record state is unknown; last status write failed")

	// External collaborator errors
	ErrProfilingFailed   = errors.New("external profiling failed")
	ErrInsightFailed     = errors.New("insight generation failed")
	ErrInsightTimeout    = errors.New("insight generation timed out")
	ErrInsightUnparsable = errors.New("insight response could not be parsed")

	// Storage errors
	ErrStorageWriteFailed = errors.New("storage write failed")
	ErrStorageReadFailed  = errors.New("storage read failed")
	ErrNotConnected       = errors.New("storage backend not connected")

	// Auth errors
	ErrUnauthorized  = errors.New("unauthorized")
	ErrTokenExpired  = errors.New("token expired")
	ErrInvalidToken  = errors.New("invalid token")
	ErrOwnerMismatch = errors.New("dataset belongs to another user")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeDataset     ErrorType = "dataset"
	ErrorTypeProfiling   ErrorType = "profiling"
	ErrorTypeInsight     ErrorType = "insight"
	ErrorTypePersistence ErrorType = "persistence"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeInternal    ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Fatal      bool                   `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Fatal:      errType != ErrorTypeInsight,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	wrapped := NewAppError(errType, code, message)
	wrapped.Cause = err
	return wrapped
}

// NewDatasetError creates an invalid-dataset error. These surface
// immediately to the caller and are never retried.
func NewDatasetError(code, message string) *AppError {
	return NewAppError(ErrorTypeDataset, code, message)
}

// NewProfilingError creates an external-profiler error. Fatal to the run;
// retryable only via a fresh explicit analysis request.
func NewProfilingError(code, message string) *AppError {
	return NewAppError(ErrorTypeProfiling, code, message)
}

// NewInsightError creates an insight generator error. Never fatal: the
// pipeline degrades to the deterministic fallback insight instead.
func NewInsightError(code, message string) *AppError {
	return NewAppError(ErrorTypeInsight, code, message)
}

// NewPersistenceError creates a metadata/blob store error
func NewPersistenceError(code, message string) *AppError {
	return NewAppError(ErrorTypePersistence, code, message)
}

// NewAuthError creates an authentication/authorization error
func NewAuthError(code, message string) *AppError {
	return NewAppError(ErrorTypeAuth, code, message)
}

// NewValidationError creates a request validation error
func NewValidationError(code, message string) *AppError {
	return NewAppError(ErrorTypeValidation, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, "INTERNAL_ERROR", message)
}

// getDefaultHTTPStatus returns the default HTTP status for an error type
func getDefaultHTTPStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeDataset, ErrorTypeValidation:
		return 400
	case ErrorTypeAuth:
		return 401
	case ErrorTypeProfiling, ErrorTypeInsight:
		return 502
	case ErrorTypePersistence:
		return 503
	case ErrorTypeInternal:
		return 500
	default:
		return 500
	}
}

// IsFatal reports whether an error should abort the analysis pipeline.
// Insight errors always degrade to the fallback branch instead.
func IsFatal(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fatal
	}
	return true
}

// ErrorResponse represents an error response for APIs
type ErrorResponse struct {
	Error     *AppError `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// Error codes for different error scenarios
const (
	// Dataset error codes
	CodeInvalidDataset   = "INVALID_DATASET"
	CodeEmptyDataset     = "EMPTY_DATASET"
	CodeMalformedInput   = "MALFORMED_INPUT"
	CodeDatasetNotFound  = "DATASET_NOT_FOUND"
	CodeRowWidthMismatch = "ROW_WIDTH_MISMATCH"

	// Profiling error codes
	CodeProfilingFailed     = "PROFILING_FAILED"
	CodeProfilerUnavailable = "PROFILER_UNAVAILABLE"
	CodeProfilerBadResponse = "PROFILER_BAD_RESPONSE"

	// Insight error codes
	CodeInsightFailed     = "INSIGHT_FAILED"
	CodeInsightTimeout    = "INSIGHT_TIMEOUT"
	CodeInsightUnparsable = "INSIGHT_UNPARSABLE"

	// Persistence error codes
	CodeWriteFailed   = "WRITE_FAILED"
	CodeReadFailed    = "READ_FAILED"
	CodeNotConnected  = "NOT_CONNECTED"
	CodeAnalysisBusy  = "ANALYSIS_BUSY"
	CodeRecordStuck   = "RECORD_STUCK"
	CodeInvalidConfig = "INVALID_CONFIG"

	// Auth error codes
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeTokenExpired  = "TOKEN_EXPIRED"
	CodeInvalidToken  = "INVALID_TOKEN"
	CodeOwnerMismatch = "OWNER_MISMATCH"

	// Internal error codes
	CodeInternalError = "INTERNAL_ERROR"
)
