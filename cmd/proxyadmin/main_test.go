package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"corrector-proxy/internal/registry"
)

const testInstallID = "123e4567-e89b-12d3-a456-426614174000"

func TestRunUsage(t *testing.T) {
	for _, args := range [][]string{nil, {"ban"}, {"delete", testInstallID}} {
		if err := run(args, &bytes.Buffer{}); err == nil || !strings.HasPrefix(err.Error(), "usage:") {
			t.Fatalf("args %v: expected usage error, got %v", args, err)
		}
	}
}

func TestSetBanned(t *testing.T) {
	ctx := context.Background()
	store := registry.NewMemoryStore()
	if err := store.Upsert(ctx, testInstallID, "hash", time.Now()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	reg := registry.New(store, zaptest.NewLogger(t))

	var out bytes.Buffer
	if err := setBanned(ctx, reg, testInstallID, true, &out); err != nil {
		t.Fatalf("setBanned: %v", err)
	}
	if !strings.Contains(out.String(), "banned=true") {
		t.Fatalf("unexpected output %q", out.String())
	}

	inst, err := store.FindByTokenHash(ctx, "hash")
	if err != nil || inst == nil || !inst.Banned {
		t.Fatalf("expected banned record, got %+v err=%v", inst, err)
	}

	if err := setBanned(ctx, reg, "00000000-0000-4000-8000-000000000000", true, &out); err == nil {
		t.Fatalf("expected error for unknown installation")
	}
}
