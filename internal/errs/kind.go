package errs

import (
	"errors"
	"net/http"
)

// Kind classifies a domain failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindRateLimited
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Code returns the numeric code carried by errors of this kind.
func (k Kind) Code() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrAlreadyExists
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindRateLimited:
		return ErrRateLimited
	default:
		return ErrInternal
	}
}

// Error is a domain failure with a numeric code and a caller-safe message.
// It matches the sentinel of its kind via errors.Is.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error // underlying cause, never shown to callers
}

// New builds an Error of kind k.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Code: k.Code(), Message: msg}
}

// Wrap builds an Error of kind k that keeps err as its cause.
func Wrap(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Code: k.Code(), Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Validation reports malformed or inconsistent input.
func Validation(msg string) *Error { return New(KindValidation, msg) }

// Conflict reports a uniqueness violation.
func Conflict(msg string) *Error { return New(KindConflict, msg) }

// Unauthorized reports bad credentials or a missing/invalid token.
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }

// Forbidden reports a disallowed operation for an authenticated caller.
func Forbidden(msg string) *Error { return New(KindForbidden, msg) }

// NotFound reports a missing entity.
func NotFound(msg string) *Error { return New(KindNotFound, msg) }

// RateLimited reports a temporary lockout.
func RateLimited(msg string) *Error { return New(KindRateLimited, msg) }

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for anything untagged.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
