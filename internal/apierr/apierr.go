// Package apierr defines the closed set of error codes the proxy returns to
// clients, together with their HTTP status and default message.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	InvalidRequest      Code = "INVALID_REQUEST"
	Unauthorized        Code = "UNAUTHORIZED"
	PaymentRequired     Code = "PAYMENT_REQUIRED"
	Banned              Code = "BANNED"
	RateLimited         Code = "RATE_LIMITED"
	UpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	Internal            Code = "INTERNAL"
)

type definition struct {
	status  int
	message string
}

var definitions = map[Code]definition{
	InvalidRequest:      {http.StatusBadRequest, "Invalid request"},
	Unauthorized:        {http.StatusUnauthorized, "Unauthorized"},
	PaymentRequired:     {http.StatusPaymentRequired, "Payment required"},
	Banned:              {http.StatusForbidden, "Banned"},
	RateLimited:         {http.StatusTooManyRequests, "Too many requests"},
	UpstreamUnavailable: {http.StatusServiceUnavailable, "Upstream unavailable"},
	Internal:            {http.StatusInternalServerError, "Internal error"},
}

// Status returns the HTTP status for the code. Unknown codes map to 500.
func (c Code) Status() int {
	if d, ok := definitions[c]; ok {
		return d.status
	}
	return http.StatusInternalServerError
}

// DefaultMessage returns the human-readable message used when no override is given.
func (c Code) DefaultMessage() string {
	if d, ok := definitions[c]; ok {
		return d.message
	}
	return definitions[Internal].message
}

// Known reports whether c belongs to the taxonomy.
func (c Code) Known() bool {
	_, ok := definitions[c]
	return ok
}

// Parse normalizes s to a known code; anything else becomes Internal.
func Parse(s string) Code {
	c := Code(s)
	if c.Known() {
		return c
	}
	return Internal
}

// Error is a classified proxy error.
type Error struct {
	Code         Code
	Message      string
	RetryAfterMs int64
}

func (e *Error) Error() string {
	if e.RetryAfterMs > 0 {
		return fmt.Sprintf("%s: %s (retry after %dms)", e.Code, e.Message, e.RetryAfterMs)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status is shorthand for e.Code.Status().
func (e *Error) Status() int {
	return e.Code.Status()
}

// New builds an Error. An empty message falls back to the code's default.
func New(code Code, message string) *Error {
	code = Parse(string(code))
	if message == "" {
		message = code.DefaultMessage()
	}
	return &Error{Code: code, Message: message}
}

// WithRetryAfter returns a copy of e carrying a retry hint in milliseconds.
func (e *Error) WithRetryAfter(ms int64) *Error {
	out := *e
	if ms < 0 {
		ms = 0
	}
	out.RetryAfterMs = ms
	return &out
}

// From extracts an *Error from err's chain, collapsing anything else to Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(Internal, "")
}
