package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HTTPError is an error with a message and an HTTP status code.
type HTTPError struct {
	Code          int    `json:"-"`
	Message       string `json:"error"`
	RequestID     string `json:"request_id,omitempty"`
	InternalError error  `json:"-"`
}

func (e *HTTPError) Error() string {
	if e.InternalError != nil {
		return fmt.Sprintf("%d: %s: %v", e.Code, e.Message, e.InternalError)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *HTTPError) Unwrap() error {
	return e.InternalError
}

// WithInternalError records the cause without exposing it to the client.
func (e *HTTPError) WithInternalError(err error) *HTTPError {
	e.InternalError = err
	return e
}

func httpError(code int, format string, args ...interface{}) *HTTPError {
	return &HTTPError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// BadRequestError returns a 400 error.
func BadRequestError(format string, args ...interface{}) *HTTPError {
	return httpError(http.StatusBadRequest, format, args...)
}

// NotFoundError returns a 404 error.
func NotFoundError(format string, args ...interface{}) *HTTPError {
	return httpError(http.StatusNotFound, format, args...)
}

// InternalServerError returns a 500 error.
func InternalServerError(format string, args ...interface{}) *HTTPError {
	return httpError(http.StatusInternalServerError, format, args...)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h handlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		handleError(err, w, r)
	}
}

// handleError renders err as {"error": ...}. Errors that are not an
// HTTPError become a 500 carrying the error text.
func handleError(err error, w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = InternalServerError("%s", err.Error()).WithInternalError(err)
	}

	if httpErr.Code >= http.StatusInternalServerError {
		httpErr.RequestID = middleware.GetReqID(r.Context())
		log.Error(httpErr.Message, zap.Error(httpErr.InternalError))
	} else {
		log.Warn(httpErr.Message, zap.Int("status", httpErr.Code), zap.Error(httpErr.InternalError))
	}

	if jsonErr := sendJSON(w, httpErr.Code, httpErr); jsonErr != nil {
		log.Error("failed to write error response", zap.Error(jsonErr))
	}
}
