package httperror

import (
	"fmt"
	"net/http"
)

// Error is a handler failure that already knows how it should be rendered.
type Error struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(status int, code, message string, details any) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func BadRequest(code, message string, details any) *Error {
	return New(http.StatusBadRequest, code, message, details)
}

func NotFound(code, message string, details any) *Error {
	return New(http.StatusNotFound, code, message, details)
}

func InternalServerError(code, message string, details any) *Error {
	return New(http.StatusInternalServerError, code, message, details)
}
