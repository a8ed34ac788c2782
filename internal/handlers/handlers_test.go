package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"

	"corrector-proxy/internal/apierr"
	"corrector-proxy/internal/cache"
	"corrector-proxy/internal/dedup"
	"corrector-proxy/internal/ratelimit"
	"corrector-proxy/internal/registry"
	"corrector-proxy/internal/upstream"
)

const testInstallID = "123e4567-e89b-12d3-a456-426614174000"

type mockUpstream struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req upstream.Request) (string, error)
}

func (m *mockUpstream) Transform(ctx context.Context, req upstream.Request) (string, error) {
	m.calls.Add(1)
	return m.fn(ctx, req)
}

type harness struct {
	t        *testing.T
	router   *chi.Mux
	store    *registry.MemoryStore
	upstream *mockUpstream
	dedup    *dedup.Coordinator
	clock    *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harnessOptions struct {
	tokenMax int
	testMode bool
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	if opts.tokenMax == 0 {
		opts.tokenMax = 60
	}

	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := registry.NewMemoryStore()
	reg := registry.New(store, zaptest.NewLogger(t))
	up := &mockUpstream{fn: func(_ context.Context, req upstream.Request) (string, error) {
		if req.Text == "helo" {
			return "hello", nil
		}
		return strings.ToUpper(req.Text), nil
	}}
	coord := dedup.New()

	transform := NewTransformHandler(TransformDeps{
		Registry:     reg,
		TokenLimiter: ratelimit.New("token", opts.tokenMax, time.Minute, ratelimit.WithClock(clock.Now)),
		Cache:        cache.NewMemoryCache(5*time.Minute, 1000),
		Dedup:        coord,
		Upstream:     up,
		TestMode:     opts.testMode,
	})

	r := chi.NewRouter()
	r.Post("/v1/register", NewRegisterHandler(reg).Register)
	r.Post("/v1/transform", transform.Transform)
	r.Get("/healthz", Health("test"))

	return &harness{t: t, router: r, store: store, upstream: up, dedup: coord, clock: clock}
}

func (h *harness) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		if err != nil {
			h.t.Fatalf("marshal request: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func (h *harness) register(installID string) string {
	h.t.Helper()
	rr := h.do(http.MethodPost, "/v1/register", "", map[string]any{"install_id": installID, "version": "1.0.0"})
	if rr.Code != http.StatusOK {
		h.t.Fatalf("register: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp registerResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		h.t.Fatalf("decode register response: %v", err)
	}
	return resp.InstallToken
}

func decodeTransform(t *testing.T, rr *httptest.ResponseRecorder) transformResponse {
	t.Helper()
	var resp transformResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode transform response %q: %v", rr.Body.String(), err)
	}
	return resp
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, code apierr.Code, message string) apierr.BodyError {
	t.Helper()
	if rr.Code != code.Status() {
		t.Fatalf("expected status %d, got %d: %s", code.Status(), rr.Code, rr.Body.String())
	}
	var body apierr.Body
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	if body.Error.Code != code {
		t.Fatalf("expected code %s, got %s", code, body.Error.Code)
	}
	if message != "" && body.Error.Message != message {
		t.Fatalf("expected message %q, got %q", message, body.Error.Message)
	}
	return body.Error
}
