package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration of the proxy.
type Config struct {
	Port string
	Env  string

	// upstream
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	UpstreamTimeout time.Duration

	// response cache
	CacheBackend    string // "memory" or "redis"
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// global limiter (every route)
	RateLimitWindow time.Duration
	RateLimitMax    int

	// per-token limiter (/v1/transform)
	TokenRateWindow time.Duration
	TokenRateMax    int

	MaxTextLength int
	MaxBodyBytes  int64

	// installation registry
	StorageDriver string // "sqlite", "postgres" or "memory"
	DBPath        string
	DatabaseURL   string

	TestMode bool
}

// fileConfig mirrors the optional YAML file named by CONFIG_FILE.
type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`
	Upstream struct {
		BaseURL   string `yaml:"base_url"`
		Model     string `yaml:"model"`
		TimeoutMs int    `yaml:"timeout_ms"`
	} `yaml:"upstream"`
	Cache struct {
		Backend    string `yaml:"backend"`
		TTLMs      int    `yaml:"ttl_ms"`
		MaxEntries int    `yaml:"max_entries"`
		RedisAddr  string `yaml:"redis_addr"`
	} `yaml:"cache"`
	RateLimit struct {
		WindowMs      int `yaml:"window_ms"`
		Max           int `yaml:"max"`
		TokenWindowMs int `yaml:"token_window_ms"`
		TokenMax      int `yaml:"token_max"`
	} `yaml:"rate_limit"`
	Storage struct {
		Driver      string `yaml:"driver"`
		Path        string `yaml:"path"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"storage"`
	MaxTextLength int `yaml:"max_text_length"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:            "8787",
		Env:             "local",
		OpenAIBaseURL:   "https://api.openai.com",
		OpenAIModel:     "gpt-4o-mini",
		UpstreamTimeout: 15 * time.Second,
		CacheBackend:    "memory",
		CacheTTL:        5 * time.Minute,
		CacheMaxEntries: 1000,
		RedisAddr:       "127.0.0.1:6379",
		RateLimitWindow: time.Minute,
		RateLimitMax:    60,
		TokenRateWindow: time.Minute,
		TokenRateMax:    60,
		MaxTextLength:   2000,
		MaxBodyBytes:    64 * 1024,
		StorageDriver:   "sqlite",
		DBPath:          "./data/proxy.sqlite",
	}
}

// Load resolves configuration: defaults -> CONFIG_FILE (yaml) -> environment.
// A .env file in the working directory, if present, seeds the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the fields the service cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	switch c.StorageDriver {
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("DB_PATH is required for sqlite storage")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres storage")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.RateLimitMax <= 0 || c.TokenRateMax <= 0 {
		return errors.New("rate limit max must be positive")
	}
	if c.RateLimitWindow <= 0 || c.TokenRateWindow <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.MaxTextLength <= 0 {
		return errors.New("MAX_TEXT_LENGTH must be positive")
	}
	return nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&c.Port, fc.Server.Port)
	setString(&c.Env, fc.Server.Env)
	setString(&c.OpenAIBaseURL, fc.Upstream.BaseURL)
	setString(&c.OpenAIModel, fc.Upstream.Model)
	setMillis(&c.UpstreamTimeout, fc.Upstream.TimeoutMs)
	setString(&c.CacheBackend, fc.Cache.Backend)
	setMillis(&c.CacheTTL, fc.Cache.TTLMs)
	setInt(&c.CacheMaxEntries, fc.Cache.MaxEntries)
	setString(&c.RedisAddr, fc.Cache.RedisAddr)
	setMillis(&c.RateLimitWindow, fc.RateLimit.WindowMs)
	setInt(&c.RateLimitMax, fc.RateLimit.Max)
	setMillis(&c.TokenRateWindow, fc.RateLimit.TokenWindowMs)
	setInt(&c.TokenRateMax, fc.RateLimit.TokenMax)
	setString(&c.StorageDriver, fc.Storage.Driver)
	setString(&c.DBPath, fc.Storage.Path)
	setString(&c.DatabaseURL, fc.Storage.DatabaseURL)
	setInt(&c.MaxTextLength, fc.MaxTextLength)
	return nil
}

func (c *Config) applyEnv() error {
	c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	setString(&c.Port, os.Getenv("PORT"))
	setString(&c.Env, os.Getenv("PROXY_ENV"))
	setString(&c.OpenAIBaseURL, os.Getenv("OPENAI_BASE_URL"))
	setString(&c.OpenAIModel, os.Getenv("OPENAI_MODEL"))
	setString(&c.CacheBackend, os.Getenv("CACHE_BACKEND"))
	setString(&c.RedisAddr, os.Getenv("REDIS_ADDR"))
	setString(&c.RedisPassword, os.Getenv("REDIS_PASSWORD"))
	setString(&c.StorageDriver, os.Getenv("STORAGE_DRIVER"))
	setString(&c.DBPath, os.Getenv("DB_PATH"))
	setString(&c.DatabaseURL, os.Getenv("DATABASE_URL"))
	c.TestMode = os.Getenv("CORRECTOR_TEST") == "1"

	ints := []struct {
		key string
		dst *int
	}{
		{"CACHE_MAX_ENTRIES", &c.CacheMaxEntries},
		{"REDIS_DB", &c.RedisDB},
		{"RATE_LIMIT_MAX", &c.RateLimitMax},
		{"TOKEN_RATE_MAX", &c.TokenRateMax},
		{"MAX_TEXT_LENGTH", &c.MaxTextLength},
	}
	for _, it := range ints {
		n, ok, err := envInt(it.key)
		if err != nil {
			return err
		}
		if ok {
			*it.dst = n
		}
	}

	millis := []struct {
		key string
		dst *time.Duration
	}{
		{"OPENAI_TIMEOUT_MS", &c.UpstreamTimeout},
		{"CACHE_TTL_MS", &c.CacheTTL},
		{"RATE_LIMIT_WINDOW_MS", &c.RateLimitWindow},
		{"TOKEN_RATE_WINDOW_MS", &c.TokenRateWindow},
	}
	for _, it := range millis {
		n, ok, err := envInt(it.key)
		if err != nil {
			return err
		}
		if ok {
			*it.dst = time.Duration(n) * time.Millisecond
		}
	}

	n, ok, err := envInt("MAX_BODY_BYTES")
	if err != nil {
		return err
	}
	if ok {
		c.MaxBodyBytes = int64(n)
	}

	return nil
}

// envInt reads an int env var. ok is false when the variable is unset.
func envInt(key string) (int, bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, true, nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setMillis(dst *time.Duration, ms int) {
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}
