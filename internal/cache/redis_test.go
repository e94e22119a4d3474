package cache

import (
	"context"
	"testing"

	"github.com/vmq-next/internal/config"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init redis failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("cache should be disabled")
	}
	var dest map[string]int
	hit, err := GetStatusSnapshot(context.Background(), &dest)
	if err != nil || hit {
		t.Fatalf("disabled cache should miss, hit=%v err=%v", hit, err)
	}
	if err := SetStatusSnapshot(context.Background(), map[string]int{"todayOrder": 1}); err != nil {
		t.Fatalf("set on disabled cache should be a no-op, got %v", err)
	}
	if err := InvalidateStatusSnapshot(context.Background()); err != nil {
		t.Fatalf("del on disabled cache should be a no-op, got %v", err)
	}
}

func TestBuildKeyUsesPrefix(t *testing.T) {
	old := redisPrefix
	redisPrefix = "vmq"
	defer func() { redisPrefix = old }()

	if got := buildKey(" admin:status "); got != "vmq:admin:status" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := buildKey(""); got != "vmq" {
		t.Fatalf("empty key should return prefix, got %s", got)
	}
}
