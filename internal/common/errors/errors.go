package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorCode is the machine-readable classification carried by StandardError.
type ErrorCode string

const (
	// Vendor API (step persistence collaborator)
	ErrCodeVendorAPIUnavailable  ErrorCode = "VENDOR_API_UNAVAILABLE"
	ErrCodeVendorAPITimeout      ErrorCode = "VENDOR_API_TIMEOUT"
	ErrCodeVendorAPIServerError  ErrorCode = "VENDOR_API_SERVER_ERROR"
	ErrCodeStepRejected          ErrorCode = "STEP_REJECTED"
	ErrCodeMalformedResponse     ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeDraftFetchFailed      ErrorCode = "DRAFT_FETCH_FAILED"
	ErrCodeAuthenticationFailure ErrorCode = "AUTHENTICATION_ERROR"

	// Completion sinks and their backing services
	ErrCodeCompletionSinkFailed ErrorCode = "COMPLETION_SINK_FAILED"
	ErrCodeExternalService      ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeExternalTimeout      ErrorCode = "EXTERNAL_SERVICE_TIMEOUT"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the normalized error shape every collaborator failure is
// converted into before it reaches the engine or a hosting surface.
type StandardError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"statusCode,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// Constructors
// ==========================

func NewVendorAPIUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeVendorAPIUnavailable,
		Message:   "Vendor API is unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewVendorAPITimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeVendorAPITimeout,
		Message:   "Vendor API call timed out",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewVendorAPIServerError(statusCode int, details string) *StandardError {
	return &StandardError{
		Code:       ErrCodeVendorAPIServerError,
		Message:    "Vendor API failed to process the request",
		Details:    details,
		Retryable:  true,
		StatusCode: statusCode,
		Timestamp:  time.Now().UTC(),
	}
}

// NewStepRejectedError is a 4xx answer: the server refused the payload. The
// server's own message is kept so it can be shown to the vendor.
func NewStepRejectedError(statusCode int, serverCode, message string) *StandardError {
	if message == "" {
		message = "The request was rejected"
	}
	return &StandardError{
		Code:       ErrCodeStepRejected,
		Message:    message,
		Details:    fmt.Sprintf("status: %d, serverCode: %s", statusCode, serverCode),
		Retryable:  false,
		StatusCode: statusCode,
		Metadata:   map[string]interface{}{"serverCode": serverCode},
		Timestamp:  time.Now().UTC(),
	}
}

func NewMalformedResponseError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedResponse,
		Message:   "Vendor API returned an unexpected response",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDraftFetchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftFetchFailed,
		Message:   "Could not load the saved onboarding draft",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthenticationFailure,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewCompletionSinkFailedError(sink string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionSinkFailed,
		Message:   fmt.Sprintf("Completion sink '%s' failed", sink),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"sink": sink},
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("%s call failed", service),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalTimeout,
		Message:   fmt.Sprintf("%s call timed out", service),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// Classification helpers
// ==========================

// Normalize converts any error into a StandardError. Errors that already are
// (or wrap) a StandardError are returned as-is; context and network errors
// are classified; everything else becomes INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}

	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewVendorAPITimeoutError(err.Error())
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewVendorAPITimeoutError(err.Error())
		}
		return NewVendorAPIUnavailableError(err)
	}

	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func IsRetryable(err error) bool {
	stdErr := Normalize(err)
	return stdErr != nil && stdErr.Retryable
}

func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "VENDOR_API"), code == ErrCodeMalformedResponse:
		return "TRANSPORT"
	case code == ErrCodeStepRejected:
		return "REJECTION"
	case code == ErrCodeDraftFetchFailed:
		return "BOOTSTRAP"
	case code == ErrCodeAuthenticationFailure:
		return "AUTH"
	case strings.Contains(codeStr, "SINK"), strings.HasPrefix(codeStr, "EXTERNAL_SERVICE"):
		return "COMPLETION"
	default:
		return "OTHER"
	}
}
