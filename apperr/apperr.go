package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicate          = errors.New("already exists")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrRemoteService      = errors.New("remote service failure")
)

// ValidationError names the offending field. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid is shorthand for a single-field ValidationError.
func Invalid(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// HTTPStatus maps an error from any layer onto the response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrRemoteService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
