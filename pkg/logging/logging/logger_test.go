package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestIsDevEnv(t *testing.T) {
	for env, want := range map[string]bool{
		"dev":         true,
		"development": true,
		"local":       true,
		"production":  false,
		"":            false,
	} {
		if got := IsDevEnv(env); got != want {
			t.Errorf("IsDevEnv(%q) = %v, want %v", env, got, want)
		}
	}
}

func TestNewHonorsLevel(t *testing.T) {
	logger, err := New("production", "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("warn should be enabled")
	}
}

func TestContextLogger(t *testing.T) {
	base := zaptest.NewLogger(t)
	SetDefault(base)
	t.Cleanup(func() { SetDefault(nil) })

	if L(context.Background()) != base {
		t.Fatalf("expected default logger without a context logger")
	}

	reqLogger := base.With(zap.String("request_id", "r1"))
	ctx := WithLogger(context.Background(), reqLogger)
	if L(ctx) != reqLogger {
		t.Fatalf("expected the attached logger")
	}

	ctx = WithFields(ctx, zap.String("install_id", "i1"))
	if L(ctx) == reqLogger {
		t.Fatalf("WithFields should attach a derived logger")
	}
}
