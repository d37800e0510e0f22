package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// KV persists small JSON documents under fixed keys.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Options selects and configures a KV backend.
type Options struct {
	// Backend is one of memory, sqlite, redis, postgres.
	Backend       string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
	DatabaseURL   string
}

// Open builds the KV named by opts.Backend.
func Open(opts Options) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "sqlite":
		return NewSQLiteKV(opts.SQLitePath)
	case "memory":
		return NewMemoryKV(), nil
	case "redis":
		return NewRedisKV(opts.RedisAddr, opts.RedisPassword, opts.RedisPrefix)
	case "postgres":
		return NewGormKV(opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown history backend: %s", opts.Backend)
	}
}
