package storage

import (
	"context"
	"sync"

	apperrors "github.com/diogo/imagestudio/internal/errors"
)

// Quota limits the total size of keys and values written through it.
//
// Sizes are learned from the inner store the first time a key is touched,
// so keys written by other processes count once they are read or replaced.
type Quota struct {
	inner KV
	limit int64

	mu    sync.Mutex
	sizes map[string]int64
	total int64
}

// NewQuota wraps kv with a byte limit
func NewQuota(kv KV, limit int64) *Quota {
	return &Quota{
		inner: kv,
		limit: limit,
		sizes: make(map[string]int64),
	}
}

func (q *Quota) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := q.inner.Get(ctx, key)
	if err != nil {
		return v, ok, err
	}

	q.mu.Lock()
	if ok {
		q.track(key, entrySize(key, v))
	} else {
		q.track(key, 0)
	}
	q.mu.Unlock()

	return v, ok, nil
}

// Set fails with ErrStorageQuotaExceeded, leaving the old value in place,
// when the write would push the total over the limit.
func (q *Quota) Set(ctx context.Context, key, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, seen := q.sizes[key]; !seen {
		old, ok, err := q.inner.Get(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			q.track(key, entrySize(key, old))
		} else {
			q.track(key, 0)
		}
	}

	size := entrySize(key, value)
	if q.total-q.sizes[key]+size > q.limit {
		return apperrors.ErrStorageQuotaExceeded
	}

	if err := q.inner.Set(ctx, key, value); err != nil {
		return err
	}
	q.track(key, size)
	return nil
}

func (q *Quota) Remove(ctx context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.inner.Remove(ctx, key); err != nil {
		return err
	}
	q.track(key, 0)
	return nil
}

func (q *Quota) Close() error {
	return q.inner.Close()
}

// Used returns the tracked byte total
func (q *Quota) Used() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}

// Limit returns the configured limit
func (q *Quota) Limit() int64 {
	return q.limit
}

// track must be called with mu held
func (q *Quota) track(key string, size int64) {
	q.total += size - q.sizes[key]
	q.sizes[key] = size
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
