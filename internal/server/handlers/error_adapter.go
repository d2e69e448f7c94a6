package handlers

import (
	"errors"
	"net/http"

	"github.com/3leaps/ftpfinder/internal/server/middleware"
	"github.com/3leaps/ftpfinder/internal/server/state"
)

// HTTPErrorResponder writes an error response for err.
type HTTPErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var httpErrorResponder HTTPErrorResponder = defaultErrorResponder

// SetHTTPErrorResponder replaces the error responder. nil restores the
// default.
func SetHTTPErrorResponder(responder HTTPErrorResponder) {
	if responder == nil {
		responder = defaultErrorResponder
	}
	httpErrorResponder = responder
}

// ResetHTTPErrorResponder restores the default error responder.
func ResetHTTPErrorResponder() {
	httpErrorResponder = defaultErrorResponder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}

// requestError is a malformed request detected by a handler.
type requestError struct {
	status  int
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(message string) error {
	return &requestError{status: http.StatusBadRequest, code: middleware.CodeBadRequest, message: message}
}

func invalid(message string) error {
	return &requestError{status: http.StatusUnprocessableEntity, code: middleware.CodeValidation, message: message}
}

func defaultErrorResponder(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		middleware.WriteError(w, r, reqErr.status, reqErr.code, reqErr.message)
	case errors.Is(err, state.ErrAlreadyConfigured):
		middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeBadRequest, "Already configured")
	case errors.Is(err, state.ErrInvalidPassword), errors.Is(err, state.ErrNotConfigured):
		middleware.WriteError(w, r, http.StatusUnauthorized, middleware.CodeUnauthorized, "Invalid password")
	case errors.Is(err, state.ErrEmptyPassword), errors.Is(err, state.ErrInvalidSource):
		middleware.WriteError(w, r, http.StatusUnprocessableEntity, middleware.CodeValidation, err.Error())
	default:
		middleware.WriteError(w, r, http.StatusInternalServerError, middleware.CodeInternal, err.Error())
	}
}
