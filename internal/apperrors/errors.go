package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized indicates a missing, malformed or expired credential.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates the caller is authenticated but not allowed to act on the resource.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrInvalidRequest indicates that input data failed validation checks.
var ErrInvalidRequest = errors.New("invalid request")

// ErrConflict indicates the operation is blocked by the current state of related data.
var ErrConflict = errors.New("conflict")

// ErrUnavailable indicates an optional collaborator (object storage, cache) is not configured.
var ErrUnavailable = errors.New("service unavailable")

// ErrInvalidLoanParameters is returned by the schedule generator. It is an ErrInvalidRequest.
var ErrInvalidLoanParameters = fmt.Errorf("%w: invalid loan parameters", ErrInvalidRequest)

// Invalid wraps ErrInvalidRequest with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the entity name.
func NotFound(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}

// Conflict wraps ErrConflict with a message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Forbidden wraps ErrForbidden with a message.
func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// HTTPStatus maps an error onto the status code the API answers with.
// Unknown errors are internal.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
