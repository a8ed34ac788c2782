package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestBuildFingerprint(t *testing.T) {
	a := BuildFingerprint("polish", "neutral", "helo")
	b := BuildFingerprint("polish", "neutral", "helo")
	if a != b {
		t.Fatalf("fingerprint not deterministic: %v vs %v", a, b)
	}

	key := a.String()
	if !strings.HasPrefix(key, "polish:neutral:") {
		t.Fatalf("unexpected key layout: %q", key)
	}
	if strings.Contains(key, "helo") {
		t.Fatalf("raw text leaked into key: %q", key)
	}
	if len(a.Hash) != 64 {
		t.Fatalf("expected sha256 hex hash, got %d chars", len(a.Hash))
	}

	tests := []struct {
		name string
		fp   Fingerprint
	}{
		{"mode", BuildFingerprint("to_en", "neutral", "helo")},
		{"style", BuildFingerprint("polish", "formal", "helo")},
		{"text", BuildFingerprint("polish", "neutral", "hello")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fp.String() == key {
				t.Fatalf("different %s produced the same key", tt.name)
			}
		})
	}
}

func TestParseFingerprint(t *testing.T) {
	fp := Fingerprint{Mode: "polish", Style: "a:b", Hash: "abc"}
	got, ok := parseFingerprint(fp.String())
	if !ok {
		t.Fatalf("expected key to parse")
	}
	if got != fp {
		t.Fatalf("expected %+v, got %+v", fp, got)
	}

	if _, ok := parseFingerprint("nocolon"); ok {
		t.Fatalf("expected malformed key to be rejected")
	}
}

func TestNew_DefaultsToMemory(t *testing.T) {
	c := New(Config{Backend: "", TTL: time.Minute, MaxEntries: 5}, nil)
	if _, ok := c.(*MemoryCache); !ok {
		t.Fatalf("expected *MemoryCache, got %T", c)
	}

	ctx := context.Background()
	if err := c.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, hit, _ := c.Get(ctx, "k"); !hit || got != "v" {
		t.Fatalf("expected hit 'v', got %q hit=%v", got, hit)
	}
}

func TestLoggingCache_PassesThrough(t *testing.T) {
	inner := NewMemoryCache(time.Minute, 5)
	c := NewLoggingCache(inner)
	ctx := context.Background()
	key := BuildFingerprint("polish", "neutral", "x").String()

	if _, hit, err := c.Get(ctx, key); hit || err != nil {
		t.Fatalf("expected clean miss, hit=%v err=%v", hit, err)
	}
	if err := c.Set(ctx, key, "y"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, hit, _ := c.Get(ctx, key); !hit || got != "y" {
		t.Fatalf("expected hit 'y', got %q hit=%v", got, hit)
	}
}
