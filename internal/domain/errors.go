package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy of failures the sync pipeline can surface.
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation"
	KindAuthExpired          ErrorKind = "auth_expired"
	KindAuthInvalid          ErrorKind = "auth_invalid"
	KindAuthRevoked          ErrorKind = "auth_revoked"
	KindAuthRefreshExhausted ErrorKind = "auth_refresh_exhausted"
	KindRateLimited          ErrorKind = "rate_limited"
	KindClientMisconfigured  ErrorKind = "client_misconfigured"
	KindProviderUnavailable  ErrorKind = "provider_unavailable"
	KindMalformedPayload     ErrorKind = "malformed_payload"
	KindStorage              ErrorKind = "storage"
	KindPublish              ErrorKind = "publish"
)

// Error attaches an ErrorKind, and optionally the offending category, to a failure.
type Error struct {
	Kind     ErrorKind
	Category Category
	Msg      string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	default:
		return string(e.Kind)
	}
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error around a cause.
func WrapError(kind ErrorKind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// WithCategory returns a copy of the error annotated with the category it occurred in.
func (e *Error) WithCategory(c Category) *Error {
	clone := *e
	clone.Category = c
	return &clone
}

// KindOf extracts the ErrorKind from an error chain. Unclassified errors report false.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
