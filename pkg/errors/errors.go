package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
	ErrServiceUnavail = errors.New("service unavailable")
)

// kind ties a sentinel to its wire code, HTTP status and the message shown
// when a bare sentinel reaches the client.
type kind struct {
	sentinel error
	code     string
	status   int
	public   string
}

var kinds = []kind{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound, "resource not found"},
	{ErrConflict, "CONFLICT", http.StatusConflict, "resource conflict"},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest, ""},
	{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, "unauthorized"},
	{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "a dependency is unavailable"},
	{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError, "an internal error occurred"},
}

func kindOf(sentinel error) kind {
	for _, k := range kinds {
		if k.sentinel == sentinel {
			return k
		}
	}
	return kinds[len(kinds)-1]
}

// AppError is an error that knows how it is rendered to API clients.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func newAppError(sentinel error, message string, cause error) *AppError {
	k := kindOf(sentinel)
	if cause == nil {
		cause = sentinel
	} else if !errors.Is(cause, sentinel) {
		cause = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: cause}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// NotFound reports a missing resource, e.g. NotFound("cart snapshot", key).
func NotFound(resource, id string) *AppError {
	return newAppError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id), nil)
}

func InvalidInput(message string) *AppError {
	return newAppError(ErrInvalidInput, message, nil)
}

func Unauthorized(message string) *AppError {
	return newAppError(ErrUnauthorized, message, nil)
}

func Conflict(message string) *AppError {
	return newAppError(ErrConflict, message, nil)
}

// Unavailable reports a dependency that cannot be reached. err may be nil.
func Unavailable(message string, err error) *AppError {
	return newAppError(ErrServiceUnavail, message, err)
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	k := kindOf(ErrInternal)
	return &AppError{Code: k.code, Message: k.public, Status: k.status, Err: err}
}

// AsAppError returns the first AppError in err's chain. Errors that only wrap
// a sentinel get one built from it; invalid input keeps err's own text since
// it describes what the caller got wrong. Anything else becomes Internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, k := range kinds {
		if !errors.Is(err, k.sentinel) {
			continue
		}
		msg := k.public
		if msg == "" {
			msg = err.Error()
		}
		return &AppError{Code: k.code, Message: msg, Status: k.status, Err: err}
	}
	return Internal(err)
}

// HTTPStatus maps err to a response status. AppErrors carry their own
// status; bare or wrapped sentinels are looked up; anything else is a 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}
