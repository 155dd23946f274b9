package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chartflow/logger"
	"chartflow/models"
	"chartflow/series"
)

// Store is the durable tier behind the fast tier.
type Store interface {
	Load(symbol, interval string) ([]models.Bar, error)
	Save(symbol, interval string, bars []models.Bar) error
}

// BarCache is the read-through/write-through fast tier in front of the
// durable store. The cached blob for a key is always the complete known
// series for that (symbol, interval) pair, never a partial range.
type BarCache struct {
	kv    KV
	store Store
	log   *logger.Log
}

func NewBarCache(kv KV, store Store) *BarCache {
	return &BarCache{
		kv:    kv,
		store: store,
		log:   logger.GetLogger(),
	}
}

// Key derives the fast-tier key for a pair.
func Key(symbol, interval string) string {
	return fmt.Sprintf("series:%s:%s", symbol, interval)
}

// full returns the complete known series, preferring the fast tier.
// fromFast reports whether the fast tier served it.
func (c *BarCache) full(ctx context.Context, symbol, interval string) (bars []models.Bar, fromFast bool, err error) {
	log := c.log.WithComponent("bar_cache").WithFields(logger.Fields{
		"symbol":   symbol,
		"interval": interval,
	})

	blob, err := c.kv.Get(ctx, Key(symbol, interval))
	switch {
	case err == nil:
		var cached []models.Bar
		if uerr := json.Unmarshal([]byte(blob), &cached); uerr == nil {
			logger.IncrementCacheHit()
			return cached, true, nil
		}
		// Damaged blob: the durable store is the source of truth.
		log.Warn("discarding unparseable fast-tier blob")
	case errors.Is(err, ErrCacheMiss):
		logger.IncrementCacheMiss()
	default:
		// Fast-tier outage is not fatal when the durable read succeeds.
		log.WithError(err).Warn("fast tier unavailable, reading durable store")
	}

	bars, err = c.store.Load(symbol, interval)
	if err != nil {
		return nil, false, err
	}
	return bars, false, nil
}

// repopulate writes the full series blob to the fast tier, best effort.
func (c *BarCache) repopulate(ctx context.Context, symbol, interval string, bars []models.Bar) {
	blob, err := json.Marshal(bars)
	if err != nil {
		return
	}
	if err := c.kv.Set(ctx, Key(symbol, interval), string(blob)); err != nil {
		c.log.WithComponent("bar_cache").WithError(err).WithFields(logger.Fields{
			"symbol":   symbol,
			"interval": interval,
		}).Warn("fast-tier write failed")
	}
}

// Get returns the cached bars within [from, to]. On a fast-tier miss the
// durable series is loaded and, when non-empty, pushed back into the fast
// tier before slicing.
func (c *BarCache) Get(ctx context.Context, symbol, interval string, from, to int64) ([]models.Bar, error) {
	bars, fromFast, err := c.full(ctx, symbol, interval)
	if err != nil {
		return nil, err
	}
	if !fromFast && len(bars) > 0 {
		c.repopulate(ctx, symbol, interval, bars)
	}
	return series.SliceRange(bars, from, to), nil
}

// Set merges newBars into the full known series and writes it through both
// tiers. The fast-tier write is best effort; the durable write decides
// success.
func (c *BarCache) Set(ctx context.Context, symbol, interval string, newBars []models.Bar) error {
	existing, _, err := c.full(ctx, symbol, interval)
	if err != nil {
		return err
	}

	merged := series.Merge(existing, newBars)
	c.repopulate(ctx, symbol, interval, merged)

	if err := c.store.Save(symbol, interval, merged); err != nil {
		return fmt.Errorf("persist series %s/%s: %w", symbol, interval, err)
	}
	return nil
}
