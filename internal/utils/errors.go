package utils

import "fmt"

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

// Standard error codes for the application
const (
	// Local errors, resolved before any network call
	ErrValidation      = "VALIDATION_ERROR"
	ErrUnauthenticated = "UNAUTHENTICATED"

	// Errors reported by the platform backend
	ErrForbidden = "FORBIDDEN" // authenticated but not allowed (e.g. not the author)
	ErrNotFound  = "NOT_FOUND"
	ErrServer    = "SERVER_ERROR"

	// Transport failures
	ErrNetwork = "NETWORK_ERROR"

	// Actor communication errors
	ErrActorTimeout  = "ACTOR_TIMEOUT"
	ErrActorNotFound = "ACTOR_NOT_FOUND"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

// Specific error creators for common cases
func NewValidationError(reason string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: "Invalid input: " + reason,
	}
}

func NewUnauthenticatedError(operation string) *AppError {
	return &AppError{
		Code:    ErrUnauthenticated,
		Message: "Sign in required to " + operation,
	}
}

func NewForbiddenError(reason string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: "Forbidden: " + reason,
	}
}

func NewCommentNotFoundError(commentID string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: "Comment not found: " + commentID,
	}
}

func NewNetworkError(operation string, originalErr error) *AppError {
	return &AppError{
		Code:    ErrNetwork,
		Message: "Request failed: " + operation,
		Origin:  originalErr,
	}
}

func NewActorTimeoutError(actorName string) *AppError {
	return &AppError{
		Code:    ErrActorTimeout,
		Message: "Actor communication timeout: " + actorName,
	}
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// IsLocalError reports whether the error was produced entirely client-side,
// before any network call was attempted.
func IsLocalError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrValidation || appErr.Code == ErrUnauthenticated
	}
	return false
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrValidation:
		return 400 // http.StatusBadRequest
	case ErrUnauthenticated:
		return 401 // http.StatusUnauthorized
	case ErrForbidden:
		return 403 // http.StatusForbidden
	case ErrNotFound, ErrActorNotFound:
		return 404 // http.StatusNotFound
	case ErrNetwork:
		return 502 // http.StatusBadGateway
	case ErrServer, ErrActorTimeout:
		return 500 // http.StatusInternalServerError
	default:
		return 500 // http.StatusInternalServerError for unknown errors
	}
}

// CodeFromHTTPStatus maps a backend HTTP status to an AppError code. Used by
// the transport layer when the platform API reports a failure.
func CodeFromHTTPStatus(status int) string {
	switch {
	case status == 401:
		return ErrUnauthenticated
	case status == 403:
		return ErrForbidden
	case status == 404:
		return ErrNotFound
	case status == 400 || status == 422:
		return ErrValidation
	default:
		return ErrServer
	}
}

// Convenience wrapper used in log lines where only the code matters.
func ErrorCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return fmt.Sprintf("UNKNOWN(%T)", err)
}
