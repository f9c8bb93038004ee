package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"DealSync/internal/config"
)

func TestNoopCache(t *testing.T) {
	var c NoopCache
	ctx := context.Background()

	if err := c.Set(ctx, "k", map[string]int{"a": 1}); err != nil {
		t.Fatalf("Set() returned unexpected error: %v", err)
	}
	var out map[string]int
	hit, err := c.Get(ctx, "k", &out)
	if err != nil || hit {
		t.Errorf("NoopCache must never hit, got hit=%v err=%v", hit, err)
	}
	if gen, _ := c.Generation(ctx, "US"); gen != 0 {
		t.Errorf("Expected generation 0, got %d", gen)
	}
}

// 需要本地 redis：REDIS_TEST_ADDR=localhost:6379
func TestRedisCache_RoundTripAndBump(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c := NewRedisCache(config.RedisConfig{Addr: addr, TTL: time.Minute})
	defer c.Close()
	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	scope := "test-" + time.Now().Format("150405.000000")
	before, err := c.Generation(ctx, scope)
	if err != nil {
		t.Fatalf("Generation() returned unexpected error: %v", err)
	}
	if err := c.Bump(ctx, scope); err != nil {
		t.Fatalf("Bump() returned unexpected error: %v", err)
	}
	after, _ := c.Generation(ctx, scope)
	if after != before+1 {
		t.Errorf("Expected generation %d, got %d", before+1, after)
	}

	key := scope + ":deals"
	if err := c.Set(ctx, key, []string{"a", "b"}); err != nil {
		t.Fatalf("Set() returned unexpected error: %v", err)
	}
	var got []string
	hit, err := c.Get(ctx, key, &got)
	if err != nil || !hit || len(got) != 2 {
		t.Errorf("Expected cache hit with 2 items, got hit=%v err=%v items=%v", hit, err, got)
	}
}
