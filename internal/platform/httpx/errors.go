package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the domain layer.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrRoleNotFound    = errors.New("role not found")
)

// Error names exposed in the response envelope.
const (
	NameUnauthorized = "UnauthorizedError"
	NameForbidden    = "ForbiddenError"
	NameValidation   = "ValidationError"
	NameNotFound     = "NotFoundError"
	NameInternal     = "InternalServerError"
)

// RespondError maps a domain error to the error envelope. A denied
// request always gets an error envelope, never an empty success body.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		Fail(w, http.StatusUnauthorized, NameUnauthorized, "Missing or invalid credentials")
	case errors.Is(err, ErrForbidden):
		Fail(w, http.StatusForbidden, NameForbidden, "Forbidden")
	case errors.Is(err, ErrValidation):
		Fail(w, http.StatusBadRequest, NameValidation, err.Error())
	case errors.Is(err, ErrNotFound):
		Fail(w, http.StatusNotFound, NameNotFound, "Not Found")
	default:
		Fail(w, http.StatusInternalServerError, NameInternal, "An error occurred during request processing")
	}
}
