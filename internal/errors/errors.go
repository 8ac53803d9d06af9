package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Error codes shared by handlers
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeDatasetNotLoaded  = "DATASET_NOT_LOADED"
	CodeUnknownKind       = "UNKNOWN_DATASET_KIND"
	CodeKindNotDetected   = "DATASET_KIND_NOT_DETECTED"
	CodeUploadRejected    = "UPLOAD_REJECTED"
	CodeSchemaRejected    = "SCHEMA_REJECTED"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
)

// Predefined error types for common scenarios
var (
	ErrInvalidRequest    = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrValidationFailed  = New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed")
	ErrNotFound          = New(http.StatusNotFound, CodeNotFound, "Resource not found")
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded")
	ErrInternalServer    = New(http.StatusInternalServerError, CodeInternal, "Internal server error")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// DatasetNotLoaded reports a view or export on an empty slot
func DatasetNotLoaded(kind string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeDatasetNotLoaded,
		fmt.Sprintf("No %s dataset has been uploaded in this session", kind),
		map[string]string{"kind": kind})
}

// UnknownKind reports an unrecognised dataset kind
func UnknownKind(kind string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeUnknownKind,
		fmt.Sprintf("Unknown dataset kind %q", kind),
		map[string]string{"kind": kind})
}

// UploadRejected reports a file that could not be parsed
func UploadRejected(filename string, details interface{}) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, CodeUploadRejected,
		fmt.Sprintf("File %q could not be loaded", filename), details)
}

// PayloadTooLarge reports an upload above the configured limit
func PayloadTooLarge(limit int64) *APIError {
	return NewWithDetails(http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		"Uploaded file exceeds the maximum allowed size",
		map[string]int64{"max_bytes": limit})
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		CodeValidationFailed,
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}
