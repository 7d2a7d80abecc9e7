// Package cache stores rendered page fragments for a bounded time.
package cache

import (
	"context"

	"github.com/sirupsen/logrus"

	"blog/internal/metrics"
)

// Cache is a keyed byte store whose entries expire after a fixed TTL.
type Cache interface {
	// Get returns the stored value and true while the entry is still valid.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Clear drops every entry immediately.
	Clear(ctx context.Context) error
}

// Fetch returns the cached value for key verbatim, or computes, stores and
// returns it. Concurrent callers that miss together each compute. Cache
// failures are logged and fall back to computing.
func Fetch(ctx context.Context, c Cache, log logrus.FieldLogger, key string, compute func() ([]byte, error)) ([]byte, error) {
	if v, ok, err := c.Get(ctx, key); err != nil {
		log.WithError(err).WithField("key", key).Warn("cache get failed")
	} else if ok {
		metrics.RecordCacheLookup(true)
		return v, nil
	}
	metrics.RecordCacheLookup(false)

	v, err := compute()
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, key, v); err != nil {
		log.WithError(err).WithField("key", key).Warn("cache set failed")
	}
	return v, nil
}
