// Package apperr defines the error kinds shared by the auth and order
// services and how each one is reported over HTTP.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation         Kind = "validation"
	KindDuplicateEmail     Kind = "duplicate_email"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnauthenticated    Kind = "unauthenticated"
	KindInvalidToken       Kind = "invalid_token"
	KindNotFound           Kind = "not_found"
	KindStorage            Kind = "storage"
	KindInternal           Kind = "internal"
)

// Error carries a kind, a client-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return string(e.Kind) + ": " + e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrStorage            = &Error{Kind: KindStorage}
)

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

func DuplicateEmail(msg string) error { return &Error{Kind: KindDuplicateEmail, Message: msg} }

func InvalidCredentials(msg string) error {
	return &Error{Kind: KindInvalidCredentials, Message: msg}
}

func Unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Message: msg} }

func InvalidToken(msg string) error { return &Error{Kind: KindInvalidToken, Message: msg} }

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

// Storage wraps a persistence failure. The cause is kept for logs only.
func Storage(err error) error {
	return &Error{Kind: KindStorage, Message: "storage error", Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindDuplicateEmail:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInvalidToken:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to show a client. Storage and internal
// failures never expose their cause.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Internal server error"
	}
	switch e.Kind {
	case KindStorage, KindInternal:
		return "Internal server error"
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}
