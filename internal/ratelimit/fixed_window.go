package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces limiter keys in a shared Redis.
const DefaultPrefix = "smartaset:ratelimit"

// Limiter admits or rejects work per key. retryAfter is the time until the
// current window closes.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration)
}

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisFixedWindow shares a fixed-window quota across server replicas.
type RedisFixedWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	client *redis.Client
	prefix string
}

// NewRedisFixedWindow creates a Redis-backed limiter.
func NewRedisFixedWindow(addr, password, prefix string, limit int, window time.Duration) (*RedisFixedWindow, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisFixedWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		prefix: prefix,
	}, nil
}

// Allow fails closed: a Redis error rejects the request.
func (l *RedisFixedWindow) Allow(ctx context.Context, key string) (bool, time.Duration) {
	slot, retry := windowSlot(l.now(), l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, normalizeKey(key), slot)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, retry
	}
	return count <= int64(l.limit), retry
}

// Close releases the Redis connection pool.
func (l *RedisFixedWindow) Close() error {
	return l.client.Close()
}

// LocalFixedWindow is the single-process limiter used when no Redis is configured.
type LocalFixedWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	slot   int64
	counts map[string]int
}

// NewLocalFixedWindow creates an in-process limiter.
func NewLocalFixedWindow(limit int, window time.Duration) (*LocalFixedWindow, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	return &LocalFixedWindow{limit: limit, window: window, now: time.Now, counts: map[string]int{}}, nil
}

func (l *LocalFixedWindow) Allow(_ context.Context, key string) (bool, time.Duration) {
	slot, retry := windowSlot(l.now(), l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	if slot != l.slot {
		l.slot = slot
		clear(l.counts)
	}
	key = normalizeKey(key)
	l.counts[key]++
	return l.counts[key] <= l.limit, retry
}

func windowSlot(now time.Time, window time.Duration) (int64, time.Duration) {
	ms := window.Milliseconds()
	nowMs := now.UTC().UnixMilli()
	slot := nowMs / ms
	return slot, time.Duration((slot+1)*ms-nowMs) * time.Millisecond
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "unknown"
	}
	return key
}
