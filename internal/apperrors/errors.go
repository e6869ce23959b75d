package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// Error is an error carrying the HTTP status it should be reported with.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// New builds an Error with the given status code.
func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrUserNotFound        = &Error{Code: http.StatusNotFound, Message: "user not found"}
	ErrDetailsNotFound     = &Error{Code: http.StatusNotFound, Message: "details not found"}
	ErrPerformanceNotFound = &Error{Code: http.StatusNotFound, Message: "performance not found"}

	ErrUserExists     = &Error{Code: http.StatusConflict, Message: "user already exists"}
	ErrUsernameExists = &Error{Code: http.StatusConflict, Message: "username already exists"}
	ErrEmailExists    = &Error{Code: http.StatusConflict, Message: "email already exists"}
	ErrDetailsExist   = &Error{Code: http.StatusConflict, Message: "user already has details"}

	ErrMissingToken       = &Error{Code: http.StatusUnauthorized, Message: "missing bearer token"}
	ErrMalformedToken     = &Error{Code: http.StatusUnauthorized, Message: "malformed authorization header"}
	ErrInvalidToken       = &Error{Code: http.StatusUnauthorized, Message: "invalid or expired token"}
	ErrInvalidCredentials = &Error{Code: http.StatusUnauthorized, Message: "invalid credentials"}

	ErrForbidden  = &Error{Code: http.StatusForbidden, Message: "insufficient role"}
	ErrBadRequest = &Error{Code: http.StatusBadRequest, Message: "bad request"}
	ErrInvalidID  = &Error{Code: http.StatusBadRequest, Message: "invalid id"}
)

// Status returns the HTTP status code for err.
func Status(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	switch {
	case errors.Is(err, jwt.ErrSignatureInvalid), errors.Is(err, jwt.ErrTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for err.
// Errors outside the taxonomy surface their raw text.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Validation wraps a payload validation failure.
func Validation(err error) *Error {
	return &Error{Code: http.StatusUnprocessableEntity, Message: err.Error()}
}
