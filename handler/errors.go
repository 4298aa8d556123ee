package handler

import (
	"errors"
	"net/http"
)

// HTTPError carries a status code and a client-safe message.
type HTTPError struct {
	Code    int
	Message string
}

func (e HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates an HTTPError. An empty message falls back to the
// status text.
func NewHTTPError(code int, message string) HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	return HTTPError{Code: code, Message: message}
}

var (
	ErrBadRequest   = HTTPError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized = HTTPError{Code: http.StatusUnauthorized, Message: "unauthorized"}
	ErrNotFound     = HTTPError{Code: http.StatusNotFound, Message: "not found"}
	ErrConflict     = HTTPError{Code: http.StatusConflict, Message: "conflict"}
	ErrInternal     = HTTPError{Code: http.StatusInternalServerError, Message: "internal error"}
)

// ErrNilResponse indicates a handler returned nil instead of a Response.
var ErrNilResponse = errors.New("handler returned nil response")
