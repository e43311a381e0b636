package redis

import (
	"context"
	"testing"
	"time"

	"github.com/efund/unitperf/pkg/config"
)

func TestDisabledClientIsNoop(t *testing.T) {
	cfg := &config.Config{}
	cfg.Redis.Enabled = false

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer client.Close()

	if client.Enabled() {
		t.Error("expected client to be disabled")
	}

	cache := NewCache(client, "unitperf")
	ctx := context.Background()

	if err := cache.Set(ctx, "k", map[string]int{"a": 1}, TTLShort); err != nil {
		t.Errorf("Set on disabled cache should be a no-op, got %v", err)
	}

	var dest map[string]int
	found, err := cache.Get(ctx, "k", &dest)
	if err != nil {
		t.Errorf("Get on disabled cache should not error, got %v", err)
	}
	if found {
		t.Error("Get on disabled cache should report a miss")
	}
}

func TestGetOrSetDisabledCallsThrough(t *testing.T) {
	client := &Client{enabled: false}
	cache := NewCache(client, "unitperf")

	calls := 0
	var dest []string
	err := cache.GetOrSet(context.Background(), "calendar", &dest, time.Minute, func() (interface{}, error) {
		calls++
		return []string{"2024-01-02", "2024-01-03"}, nil
	})
	if err != nil {
		t.Fatalf("GetOrSet failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected fn to be called once, got %d", calls)
	}
	if len(dest) != 2 {
		t.Errorf("expected 2 entries, got %d", len(dest))
	}
}

func TestCacheKeys(t *testing.T) {
	if got := CalendarKey("SSE", "20240101", "20241231"); got != "calendar:SSE:20240101:20241231" {
		t.Errorf("CalendarKey = %q", got)
	}
	if got := QuoteFrameKey("close", "20240101", "20241231"); got != "quotes:close:20240101:20241231" {
		t.Errorf("QuoteFrameKey = %q", got)
	}
}
