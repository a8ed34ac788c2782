package upstream

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"corrector-proxy/internal/apierr"
)

const (
	msgTimeout      = "Upstream timeout"
	msgDown         = "Upstream down"
	msgServiceError = "Upstream service error"
)

// mapStatus translates a non-2xx upstream status into the proxy taxonomy.
// Clients pick their retry strategy from the resulting code, so this table
// must stay stable.
func mapStatus(status int, header http.Header, now time.Time) *apierr.Error {
	switch status {
	case http.StatusBadRequest:
		return apierr.New(apierr.InvalidRequest, "Invalid request")
	case http.StatusUnauthorized:
		return apierr.New(apierr.UpstreamUnavailable, msgDown)
	case http.StatusPaymentRequired:
		return apierr.New(apierr.PaymentRequired, "Payment required")
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return apierr.New(apierr.UpstreamUnavailable, msgTimeout)
	case http.StatusTooManyRequests:
		return apierr.New(apierr.RateLimited, "Too many requests").
			WithRetryAfter(parseRetryAfter(header.Get("Retry-After"), now))
	default:
		return apierr.New(apierr.UpstreamUnavailable, msgServiceError)
	}
}

// mapTransportError classifies a failure that produced no HTTP response.
func mapTransportError(err error) *apierr.Error {
	if isTimeout(err) {
		return apierr.New(apierr.UpstreamUnavailable, msgTimeout)
	}
	return apierr.New(apierr.UpstreamUnavailable, "")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseRetryAfter converts a Retry-After header into milliseconds.
//
// Retry-After can be:
// - Number of seconds, possibly fractional: "120", "1.5"
// - HTTP date: "Wed, 21 Oct 2015 07:28:00 GMT"
//
// Anything else, and any value in the past, yields 0.
func parseRetryAfter(v string, now time.Time) int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}

	if seconds, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
			return 0
		}
		return int64(seconds * 1000)
	}

	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d.Milliseconds()
		}
	}

	return 0
}
