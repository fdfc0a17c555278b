// Package storage provides the key-value persistence layer used for
// settings and chat history.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// KV is a string key-value store.
//
// Get reports a missing key with ok == false and a nil error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultQuotaBytes approximates the browser storage budget the history
// format was sized for.
const DefaultQuotaBytes = 5 * 1024 * 1024

// RedisOptions configures the redis backend
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
	Timeout  time.Duration
}

// Options selects and configures a backend
type Options struct {
	Backend    string
	Path       string // directory for file, database file for sqlite
	QuotaBytes int64  // 0 disables the quota
	Redis      RedisOptions
}

// Open creates the configured backend, wrapped in a quota when QuotaBytes > 0
func Open(ctx context.Context, opts Options) (KV, error) {
	var (
		kv  KV
		err error
	)

	switch opts.Backend {
	case "", BackendFile:
		kv, err = NewFileStore(opts.Path)
	case BackendSQLite:
		path := opts.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "imagestudio.db")
		}
		kv, err = NewSQLiteStore(ctx, path)
	case BackendRedis:
		kv, err = NewRedisStore(ctx, opts.Redis)
	case BackendMemory:
		kv = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	if opts.QuotaBytes > 0 {
		return NewQuota(kv, opts.QuotaBytes), nil
	}
	return kv, nil
}
