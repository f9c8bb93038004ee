package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"DealSync/internal/config"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix        = "dealsync:"
	generationPrefix = keyPrefix + "gen:"
)

// RedisCache 查询结果缓存（JSON + TTL），按 scope 的代数计数器失效
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: ttl,
	}
}

// Ping 启动时检查连通性
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get 命中时解码到 dest 并返回 true
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("缓存数据解析失败(key=%s): %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err()
}

// Generation 当前代数，不存在时为 0
func (c *RedisCache) Generation(ctx context.Context, scope string) (int64, error) {
	n, err := c.client.Get(ctx, generationPrefix+scope).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Bump 代数 +1，旧 key 不再被读取，随 TTL 过期
func (c *RedisCache) Bump(ctx context.Context, scope string) error {
	return c.client.Incr(ctx, generationPrefix+scope).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoopCache 未配置 redis 时使用，从不命中
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (NoopCache) Set(context.Context, string, interface{}) error         { return nil }
func (NoopCache) Generation(context.Context, string) (int64, error)      { return 0, nil }
func (NoopCache) Bump(context.Context, string) error                     { return nil }
