package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/metrics"
	"github.com/sweeney/greenhouse-controller/internal/store"
)

const (
	// LatestKey holds the JSON encoding of the newest reading, versioned by
	// its timestamp.
	LatestKey = "greenhouse:latest-reading"

	// LatestTTL bounds how long a stale entry survives if writes stop.
	LatestTTL = 10 * time.Minute
)

// LatestCache wraps a ReadingStore and serves Latest from a KVStore.
// Cache failures are logged and fall through to the wrapped store.
type LatestCache struct {
	store.ReadingStore
	kv     KVStore
	logger *zap.Logger
}

var _ store.ReadingStore = (*LatestCache)(nil)

func NewLatestCache(inner store.ReadingStore, kv KVStore, logger *zap.Logger) *LatestCache {
	return &LatestCache{ReadingStore: inner, kv: kv, logger: logger}
}

// Append writes through to the store, then refreshes the cached latest reading
// unless the cache already holds a newer one. A reading with the same
// timestamp replaces the cached one, matching the store's arrival order.
func (c *LatestCache) Append(ctx context.Context, r logic.Reading) error {
	if err := c.ReadingStore.Append(ctx, r); err != nil {
		return err
	}
	c.set(ctx, r, true)
	return nil
}

// Latest returns the cached reading, loading it from the store on a miss.
func (c *LatestCache) Latest(ctx context.Context) (logic.Reading, bool, error) {
	if r, ok := c.get(ctx); ok {
		metrics.CacheHitsTotal.Inc()
		return r, true, nil
	}
	metrics.CacheMissesTotal.Inc()

	r, ok, err := c.ReadingStore.Latest(ctx)
	if err != nil || !ok {
		return r, ok, err
	}
	// An Append racing this load may have cached a newer reading already.
	c.set(ctx, r, false)
	return r, true, nil
}

func (c *LatestCache) get(ctx context.Context) (logic.Reading, bool) {
	raw, err := c.kv.Get(ctx, LatestKey)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("cache read failed", zap.Error(err))
		}
		return logic.Reading{}, false
	}

	var r logic.Reading
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		c.logger.Warn("discarding malformed cache entry", zap.Error(err))
		return logic.Reading{}, false
	}
	return r, true
}

func (c *LatestCache) set(ctx context.Context, r logic.Reading, replaceEqual bool) {
	data, err := json.Marshal(r)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.Error(err))
		return
	}
	if _, err := c.kv.SetIfNewer(ctx, LatestKey, version(r.Timestamp), string(data), replaceEqual, LatestTTL); err != nil {
		c.logger.Warn("cache write failed", zap.Error(err))
	}
}

// version encodes t as fixed-width UTC nanoseconds so versions order lexically.
func version(t time.Time) string {
	return fmt.Sprintf("%020d", t.UTC().UnixNano())
}
