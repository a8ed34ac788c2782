package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"corrector-proxy/internal/apierr"
	"corrector-proxy/internal/cache"
	"corrector-proxy/internal/dedup"
	"corrector-proxy/internal/metrics"
	"corrector-proxy/internal/ratelimit"
	"corrector-proxy/internal/registry"
	"corrector-proxy/internal/upstream"
	"corrector-proxy/internal/validation"
	"corrector-proxy/pkg/logging/logging"
)

const (
	DefaultMode          = upstream.ModePolish
	DefaultStyle         = "neutral"
	DefaultMaxTextLength = 2000

	testErrorHeader = "X-Test-Error"
)

// Fields stay raw so that a wrong JSON type is reported by the check that
// owns the field, in request order.
type transformRequest struct {
	Mode      json.RawMessage `json:"mode"`
	Text      json.RawMessage `json:"text"`
	Style     json.RawMessage `json:"style"`
	TestError json.RawMessage `json:"test_error"`
}

type transformResponse struct {
	Output string `json:"output"`
	Cached bool   `json:"cached,omitempty"`
}

// TransformDeps are the collaborators of the transform endpoint.
type TransformDeps struct {
	Registry      *registry.Registry
	TokenLimiter  *ratelimit.Limiter
	Cache         cache.Cache
	Dedup         *dedup.Coordinator
	Upstream      upstream.Client
	MaxTextLength int
	// TestMode enables forced errors via X-Test-Error or test_error.
	TestMode bool
}

// TransformHandler holds dependencies for the /v1/transform endpoint.
type TransformHandler struct {
	deps TransformDeps
}

func NewTransformHandler(deps TransformDeps) *TransformHandler {
	if deps.MaxTextLength <= 0 {
		deps.MaxTextLength = DefaultMaxTextLength
	}
	if deps.Dedup == nil {
		deps.Dedup = dedup.New()
	}
	return &TransformHandler{deps: deps}
}

// Transform handles POST /v1/transform.
func (h *TransformHandler) Transform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	var req transformRequest
	if err := decodeBody(r, &req); err != nil {
		if _, ok := err.(*apierr.Error); !ok {
			// body was valid JSON but not an object
			err = apierr.New(apierr.InvalidRequest, "Invalid JSON")
		}
		writeError(w, r, err)
		return
	}

	// ---- auth ----
	token := registry.BearerToken(r)
	if token == "" {
		writeError(w, r, apierr.New(apierr.Unauthorized, ""))
		return
	}

	inst, err := h.deps.Registry.Resolve(ctx, token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if inst == nil {
		writeError(w, r, apierr.New(apierr.Unauthorized, ""))
		return
	}
	if inst.Banned {
		writeError(w, r, apierr.New(apierr.Banned, ""))
		return
	}

	logger = logger.With(zap.String("install_id", inst.InstallID))
	ctx = logging.WithLogger(ctx, logger)

	// ---- per-token rate limit ----
	if d := h.deps.TokenLimiter.Check(inst.TokenHash); d.Limited {
		metrics.RateLimitedTotal.WithLabelValues(h.deps.TokenLimiter.Name()).Inc()
		logger.Warn("rate_limited",
			zap.String("limiter", h.deps.TokenLimiter.Name()),
			zap.Int64("retry_after_ms", d.RetryAfterMs),
		)
		writeError(w, r, apierr.New(apierr.RateLimited, "").WithRetryAfter(d.RetryAfterMs))
		return
	}

	h.deps.Registry.Touch(ctx, inst.InstallID)

	// ---- forced errors (test mode only) ----
	if h.deps.TestMode {
		forced := r.Header.Get(testErrorHeader)
		if forced == "" {
			forced, _ = rawString(req.TestError)
		}
		if forced != "" {
			writeError(w, r, apierr.New(apierr.Parse(forced), ""))
			return
		}
	}

	// ---- validation ----
	text, ok := rawString(req.Text)
	if !ok || strings.TrimSpace(text) == "" {
		writeError(w, r, apierr.New(apierr.InvalidRequest, "Text is required"))
		return
	}
	if validation.Var(text, fmt.Sprintf("max=%d", h.deps.MaxTextLength)) != nil {
		writeError(w, r, apierr.New(apierr.InvalidRequest,
			fmt.Sprintf("Text too long (max %d chars)", h.deps.MaxTextLength)))
		return
	}

	mode := DefaultMode
	if present(req.Mode) {
		s, ok := rawString(req.Mode)
		if !ok {
			writeError(w, r, apierr.New(apierr.InvalidRequest, "Invalid mode"))
			return
		}
		mode = upstream.Mode(s)
	}
	if !mode.Valid() {
		writeError(w, r, apierr.New(apierr.InvalidRequest, "Invalid mode"))
		return
	}

	style := DefaultStyle
	if present(req.Style) {
		s, ok := rawString(req.Style)
		if !ok {
			writeError(w, r, apierr.New(apierr.InvalidRequest, "Invalid style"))
			return
		}
		style = s
	}

	// ---- cache ----
	fp := cache.BuildFingerprint(string(mode), style, text)
	key := fp.String()
	textLen := utf8.RuneCountInString(text)

	output, hit, err := h.deps.Cache.Get(ctx, key)
	if err != nil {
		// Cache is best-effort; treat as miss.
		logger.Warn("cache_get_error", zap.Error(err))
	}
	if hit {
		logger.Info("transform",
			zap.String("mode", string(mode)),
			zap.Int("len", textLen),
			zap.Bool("cached", true),
		)
		writeJSON(w, http.StatusOK, transformResponse{Output: output, Cached: true})
		return
	}

	// ---- upstream, one call per fingerprint ----
	// The call outlives this request if the client goes away, so that other
	// waiters on the same fingerprint still get a result.
	callCtx := context.WithoutCancel(ctx)
	res := h.deps.Dedup.Do(key, func() (string, error) {
		start := time.Now()
		logger.Info("transform",
			zap.String("mode", string(mode)),
			zap.Int("len", textLen),
			zap.Bool("cached", false),
		)

		out, err := h.deps.Upstream.Transform(callCtx, upstream.Request{Text: text, Mode: mode})
		if err != nil {
			return "", err
		}

		if out != "" {
			if err := h.deps.Cache.Set(callCtx, key, out); err != nil {
				logger.Warn("cache_set_error", zap.Error(err))
			}
		}

		logger.Info("transform_completed",
			zap.Int64("processing_time_ms", time.Since(start).Milliseconds()),
		)
		return out, nil
	})

	if res.Err != nil {
		apiErr := apierr.From(res.Err)
		logger.Warn("transform_failed",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.Bool("shared", res.Shared),
		)
		writeError(w, r, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, transformResponse{Output: res.Output})
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// rawString reports raw as a Go string when it holds a JSON string.
func rawString(raw json.RawMessage) (string, bool) {
	if !present(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
