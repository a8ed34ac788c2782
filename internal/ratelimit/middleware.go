package ratelimit

import (
	"net"
	"net/http"

	"go.uber.org/zap"

	"corrector-proxy/internal/apierr"
	"corrector-proxy/internal/metrics"
	"corrector-proxy/internal/registry"
	"corrector-proxy/pkg/logging/logging"
)

// GlobalKey identifies the caller for the global limiter: the bearer token
// when one is presented, otherwise the client IP.
func GlobalKey(r *http.Request) string {
	if tok := registry.BearerToken(r); tok != "" {
		return "tok:" + tok
	}
	return "ip:" + clientIP(r)
}

// Middleware rejects requests once l's window for GlobalKey is exhausted.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Check(GlobalKey(r))
			if d.Limited {
				metrics.RateLimitedTotal.WithLabelValues(l.Name()).Inc()
				logging.L(r.Context()).Warn("rate_limited",
					zap.String("limiter", l.Name()),
					zap.Int64("retry_after_ms", d.RetryAfterMs),
				)
				apierr.Write(w, apierr.New(apierr.RateLimited, "").WithRetryAfter(d.RetryAfterMs))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware has
// already replaced it with the forwarded address when one was sent.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
