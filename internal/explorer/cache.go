package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a positive lookup is reused.
const DefaultCacheTTL = 10 * time.Minute

// CachedLookup memoises positive results of another Lookup and collapses
// concurrent identical requests into one upstream call. Failures are never
// cached so a record that appears later is picked up.
type CachedLookup struct {
	next   Lookup
	cache  *bigcache.BigCache
	group  singleflight.Group
	logger *zap.Logger
}

// NewCachedLookup wraps next with a cache whose entries live for ttl.
func NewCachedLookup(ctx context.Context, next Lookup, ttl time.Duration, logger *zap.Logger) (*CachedLookup, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 10_000
	cfg.MaxEntrySize = 1024
	cfg.CleanWindow = ttl / 2
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}
	return &CachedLookup{next: next, cache: cache, logger: logger}, nil
}

// Close releases the cache.
func (c *CachedLookup) Close() error {
	return c.cache.Close()
}

func (c *CachedLookup) Transaction(ctx context.Context, txid string) (*TxSummary, error) {
	var sum TxSummary
	err := c.fetch(ctx, "tx:"+txid, &sum, func(ctx context.Context) (any, error) {
		return c.next.Transaction(ctx, txid)
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func (c *CachedLookup) Address(ctx context.Context, addr string) (*AddressSummary, error) {
	var sum AddressSummary
	err := c.fetch(ctx, "addr:"+addr, &sum, func(ctx context.Context) (any, error) {
		return c.next.Address(ctx, addr)
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// fetch fills out from the cache or from load. Values travel through the
// cache and the singleflight group as JSON so every caller gets its own copy.
func (c *CachedLookup) fetch(ctx context.Context, key string, out any, load func(context.Context) (any, error)) error {
	if data, err := c.cache.Get(key); err == nil {
		return json.Unmarshal(data, out)
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		c.logger.Warn("lookup cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		rec, err := load(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(key, data); err != nil {
			c.logger.Warn("lookup cache write failed", zap.String("key", key), zap.Error(err))
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), out)
}
