package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const flightKey = "station"

// CacheOptions configure the single-slot fetch cache.
type CacheOptions struct {
	TTL time.Duration
	// FetchTimeout bounds the shared upstream call, independent of callers.
	FetchTimeout time.Duration
	Now          func() time.Time
}

type cacheEntry struct {
	fetchedAt time.Time
	record    StationRecord
}

// Cache serves the last station record for TTL and coalesces concurrent
// misses into one upstream call.
type Cache struct {
	provider StationProvider
	opts     CacheOptions
	logger   zerolog.Logger

	mu    sync.Mutex
	entry *cacheEntry
	group singleflight.Group
}

// NewCache wraps provider with a TTL cache.
func NewCache(provider StationProvider, opts CacheOptions, logger zerolog.Logger) *Cache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	return &Cache{
		provider: provider,
		opts:     opts,
		logger:   logger.With().Str("component", "fetch_cache").Logger(),
	}
}

// FetchStation returns the cached record while fresh, otherwise refreshes it.
// A failed refresh leaves the previous entry in place.
func (c *Cache) FetchStation(ctx context.Context) (StationRecord, error) {
	if record, ok := c.fresh(c.opts.Now()); ok {
		return record, nil
	}

	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		now := c.opts.Now()
		// a flight that finished just before this one may already have refreshed
		if record, ok := c.fresh(now); ok {
			return record, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
		defer cancel()

		record, err := c.provider.FetchStation(fetchCtx)
		if err != nil {
			return StationRecord{}, err
		}

		c.mu.Lock()
		c.entry = &cacheEntry{fetchedAt: now, record: record}
		c.mu.Unlock()

		c.logger.Debug().Time("fetched_at", now).Msg("station cache refreshed")
		return record, nil
	})

	select {
	case <-ctx.Done():
		return StationRecord{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return StationRecord{}, res.Err
		}
		record, ok := res.Val.(StationRecord)
		if !ok {
			return StationRecord{}, errors.New("unexpected cached value type")
		}
		return record, nil
	}
}

func (c *Cache) fresh(now time.Time) (StationRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil || c.opts.TTL <= 0 {
		return StationRecord{}, false
	}
	if now.Sub(c.entry.fetchedAt) < c.opts.TTL {
		return c.entry.record, true
	}
	return StationRecord{}, false
}

var _ StationProvider = (*Cache)(nil)
