package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV keeps values in Redis so several service replicas share history.
type RedisKV struct {
	client *redis.Client
	prefix string
}

// NewRedisKV builds a Redis-backed KV. Keys are namespaced with prefix.
func NewRedisKV(addr, password, prefix string) (*RedisKV, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "smartaset"
	}
	return &RedisKV{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
	}, nil
}

func (r *RedisKV) key(k string) string {
	return r.prefix + ":" + k
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
