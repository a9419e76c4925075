package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorKind classifies generation errors.
type ErrorKind int

const (
	Authentication     ErrorKind = iota // credential missing, invalid or refused
	ServiceUnavailable                  // endpoint unreachable or 5xx
	MalformedResponse                   // reply carries no extractable text
)

var errorKindNames = [...]string{
	Authentication:     "authentication",
	ServiceUnavailable: "service_unavailable",
	MalformedResponse:  "malformed_response",
}

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("unknown(%d)", k)
}

var (
	ErrAuthentication     = &Error{Kind: Authentication, Message: "authentication failed"}
	ErrServiceUnavailable = &Error{Kind: ServiceUnavailable, Message: "service unavailable"}
	ErrMalformedResponse  = &Error{Kind: MalformedResponse, Message: "malformed response"}
)

// Error is returned by generators for the failures callers are expected to
// tell apart. Anything else a vendor client raises is returned as is.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Cause    error
}

func NewError(kind ErrorKind, provider string, message string, cause error) *Error {
	return &Error{
		Kind:     kind,
		Provider: provider,
		Message:  message,
		Cause:    cause,
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if len(e.Provider) > 0 {
		return fmt.Sprintf("generator [%s] %s: %s", e.Kind, e.Provider, msg)
	}
	return fmt.Sprintf("generator [%s]: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so the package sentinels work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// FromStatus classifies err by the HTTP status the vendor answered with.
// Statuses outside the taxonomy leave err untouched.
func FromStatus(provider string, status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(Authentication, provider, "credential rejected", err)
	case status >= http.StatusInternalServerError:
		return NewError(ServiceUnavailable, provider, fmt.Sprintf("server answered %d", status), err)
	}
	return err
}

// FromTransport classifies network failures that never produced a reply.
// Cancellation by the caller is not a service failure and is left as is.
func FromTransport(provider string, err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewError(ServiceUnavailable, provider, "endpoint unreachable", err)
	}

	return err
}

// MissingKey is returned before any call is made when no credential was configured.
func MissingKey(provider string) error {
	return NewError(Authentication, provider, "missing API key", nil)
}

// RejectedKey reports whether a vendor error message says the API key itself
// was refused. Google answers 400 rather than 401 for a malformed key.
func RejectedKey(message string) bool {
	return strings.Contains(message, "API_KEY_INVALID") ||
		strings.Contains(message, "API key not valid") ||
		strings.Contains(message, "API key expired")
}
