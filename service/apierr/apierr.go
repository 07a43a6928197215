// Package apierr defines the closed set of error kinds the explorer can
// produce and how each one maps onto an HTTP status.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error. The set is closed; HTTPStatus switches over
// every value.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindNotFound
	KindUpstreamAuth
	KindRateLimited
	KindTimeout
	KindUpstream
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindUpstreamAuth:
		return "upstream_auth"
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindUpstream:
		return "upstream"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is the single error type crossing package boundaries. Status is
// only meaningful for KindUpstream, where it carries the provider's status
// code.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil || e.Err.Error() == e.Message {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error of the given kind wrapping err (which may be nil).
func New(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Domain builds an error whose message is the sentinel's text. Both the
// sentinel and cause (when non-nil) are reachable through errors.Is/As.
func Domain(kind Kind, sentinel, cause error) *Error {
	e := &Error{Kind: kind, Message: sentinel.Error(), Err: sentinel}
	if cause != nil {
		e.Err = &causedBy{sentinel: sentinel, cause: cause}
	}
	return e
}

// causedBy pairs a sentinel with the error that triggered it. Its text is
// the cause's text; the sentinel already provides the outer message.
type causedBy struct {
	sentinel error
	cause    error
}

func (c *causedBy) Error() string   { return c.cause.Error() }
func (c *causedBy) Unwrap() []error { return []error{c.sentinel, c.cause} }

// InvalidInput wraps a validation failure.
func InvalidInput(err error, format string, args ...any) *Error {
	return New(KindInvalidInput, err, format, args...)
}

// NotFound wraps a missing entity.
func NotFound(err error, format string, args ...any) *Error {
	return New(KindNotFound, err, format, args...)
}

// Config reports a missing or invalid setting.
func Config(format string, args ...any) *Error {
	return New(KindConfig, nil, format, args...)
}

// Timeout reports an expired deadline.
func Timeout(err error, format string, args ...any) *Error {
	return New(KindTimeout, err, format, args...)
}

// Upstream reports a generic provider failure with the provider's status.
func Upstream(status int, err error, format string, args ...any) *Error {
	e := New(KindUpstream, err, format, args...)
	e.Status = status
	return e
}

// As returns the *Error in err's chain, or nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// KindOf returns the kind of err, or 0 when err carries none.
func KindOf(err error) Kind {
	if e := As(err); e != nil {
		return e.Kind
	}
	return 0
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// From classifies any error. Errors already carrying a kind are returned
// unchanged; expired deadlines become KindTimeout; anything else is treated
// as an internal upstream failure.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if e := As(err); e != nil {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err, "request timed out")
	}
	return Upstream(http.StatusInternalServerError, err, "internal error")
}

// HTTPStatus maps err to the status code the HTTP surface responds with.
func HTTPStatus(err error) int {
	e := From(err)
	if e == nil {
		return http.StatusOK
	}
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstreamAuth:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindUpstream:
		if e.Status >= 400 && e.Status < 600 {
			return e.Status
		}
		return http.StatusBadGateway
	case KindConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Chain lists the messages of every error in err's wrap chain, outermost
// first, skipping consecutive repeats.
func Chain(err error) []string {
	var out []string
	for err != nil {
		if msg := err.Error(); len(out) == 0 || out[len(out)-1] != msg {
			out = append(out, msg)
		}
		if c, ok := err.(*causedBy); ok {
			err = c.cause
			continue
		}
		err = errors.Unwrap(err)
	}
	return out
}
