package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"corrector-proxy/internal/apierr"
	"corrector-proxy/pkg/logging/logging"
)

// Recoverer turns a panic into an INTERNAL error response.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger := logging.L(r.Context())
				logger.Error("panic recovered",
					zap.Any("error", rec),
					zap.ByteString("stack", debug.Stack()),
				)

				apierr.Write(w, apierr.New(apierr.Internal, ""))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
