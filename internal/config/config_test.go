package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Port != "8787" {
		t.Errorf("Port = %q, want 8787", cfg.Port)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.UpstreamTimeout != 15*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 15s", cfg.UpstreamTimeout)
	}
	if cfg.TokenRateMax != 60 || cfg.RateLimitMax != 60 {
		t.Errorf("unexpected rate limits: %d/%d", cfg.RateLimitMax, cfg.TokenRateMax)
	}
	if cfg.MaxTextLength != 2000 {
		t.Errorf("MaxTextLength = %d, want 2000", cfg.MaxTextLength)
	}
	if cfg.TestMode {
		t.Errorf("TestMode should be off by default")
	}
}

func TestValidateRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "9000")
	t.Setenv("CACHE_TTL_MS", "1000")
	t.Setenv("TOKEN_RATE_MAX", "3")
	t.Setenv("TOKEN_RATE_WINDOW_MS", "250")
	t.Setenv("OPENAI_TIMEOUT_MS", "50")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("CORRECTOR_TEST", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.CacheTTL != time.Second {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.TokenRateMax != 3 || cfg.TokenRateWindow != 250*time.Millisecond {
		t.Errorf("token limiter = %d/%v", cfg.TokenRateMax, cfg.TokenRateWindow)
	}
	if cfg.UpstreamTimeout != 50*time.Millisecond {
		t.Errorf("UpstreamTimeout = %v", cfg.UpstreamTimeout)
	}
	if !cfg.TestMode {
		t.Errorf("TestMode should be on")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestInvalidIntEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_MAX", "lots")

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proxy.yaml")
	body := `
server:
  port: "7000"
  env: staging
cache:
  ttl_ms: 2000
rate_limit:
  max: 10
storage:
  driver: postgres
  database_url: postgres://localhost/proxy
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "7001" {
		t.Errorf("env should win over file: Port = %q", cfg.Port)
	}
	if cfg.Env != "staging" {
		t.Errorf("Env = %q", cfg.Env)
	}
	if cfg.CacheTTL != 2*time.Second {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.RateLimitMax != 10 {
		t.Errorf("RateLimitMax = %d", cfg.RateLimitMax)
	}
	if cfg.StorageDriver != "postgres" || cfg.DatabaseURL == "" {
		t.Errorf("storage = %q %q", cfg.StorageDriver, cfg.DatabaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	cfg := Defaults()
	cfg.OpenAIAPIKey = "sk"
	cfg.CacheBackend = "memcached"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected cache backend error")
	}

	cfg = Defaults()
	cfg.OpenAIAPIKey = "sk"
	cfg.StorageDriver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing DATABASE_URL error")
	}
}
