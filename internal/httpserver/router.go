package httpserver

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"corrector-proxy/internal/handlers"
	"corrector-proxy/internal/metrics"
	"corrector-proxy/internal/middleware"
	"corrector-proxy/internal/ratelimit"
)

type Options struct {
	Env           string
	MaxBodyBytes  int64
	GlobalLimiter *ratelimit.Limiter
	// RequestTimeout must exceed the upstream timeout so that upstream
	// timeouts are reported with their own message.
	RequestTimeout time.Duration
}

func SetupRouter(
	r *chi.Mux,
	baseLogger *zap.Logger,
	opts Options,
	registerHandler *handlers.RegisterHandler,
	transformHandler *handlers.TransformHandler,
) {
	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.EchoRequestID)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer()) // panic recovery

	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(opts.GlobalLimiter))
		r.Use(middleware.Timeout(opts.RequestTimeout))
		r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))

		r.Route("/v1", func(r chi.Router) {
			r.Post("/register", registerHandler.Register)
			r.Post("/transform", transformHandler.Transform)
		})

		// health check
		r.Get("/healthz", handlers.Health(opts.Env))
	})
}
