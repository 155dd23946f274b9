package chart

import (
	"context"
	"fmt"
	"time"

	"chartflow/logger"
	"chartflow/models"
	"chartflow/series"
	"chartflow/upstream"
)

// Cache is the two-tier bar cache consumed by the service.
type Cache interface {
	Get(ctx context.Context, symbol, interval string, from, to int64) ([]models.Bar, error)
	Set(ctx context.Context, symbol, interval string, bars []models.Bar) error
}

// BanChecker exposes the externally owned upstream circuit-breaker state.
type BanChecker interface {
	Banned(ctx context.Context, nowMs int64) bool
}

// Service is the backfill orchestrator: it reconciles a requested range
// against the cache, fetches only the missing sub-ranges from upstream and
// serves the final slice.
type Service struct {
	cache      Cache
	provider   upstream.Provider
	bans       BanChecker
	maxRetries int
	retryDelay time.Duration
	log        *logger.Log

	// injected for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(c Cache, p upstream.Provider, bans BanChecker, maxRetries int, retryDelay time.Duration) *Service {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Service{
		cache:      c,
		provider:   p,
		bans:       bans,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		log:        logger.GetLogger(),
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GetHistoricalBars returns the bars covering [from, to] for the pair,
// backfilling missing sub-ranges from upstream first.
//
// While the upstream ban is active the cached slice is returned as-is;
// degraded, not an error. A gap fetch that exhausts its retries fails the
// whole request with ErrUpstreamUnavailable.
func (s *Service) GetHistoricalBars(ctx context.Context, symbol, interval string, from, to int64) ([]models.Bar, error) {
	log := s.log.WithComponent("chart").WithFields(logger.Fields{
		"symbol":   symbol,
		"interval": interval,
	})

	nowMs := s.now().UnixMilli()
	if s.bans != nil && s.bans.Banned(ctx, nowMs) {
		log.Warn("upstream banned, serving cached bars only")
		return s.cache.Get(ctx, symbol, interval, from, to)
	}

	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}

	cached, err := s.cache.Get(ctx, symbol, interval, from, to)
	if err != nil {
		return nil, err
	}

	intervalMs := models.IntervalDuration(interval)
	if intervalMs > 0 {
		expected := (to - from + intervalMs - 1) / intervalMs
		if int64(len(cached)) == expected {
			return cached, nil
		}
	}

	gaps := series.FindGaps(cached, from, to, intervalMs, nowMs)
	for _, gap := range gaps {
		nowMs = s.now().UnixMilli()
		if s.bans != nil && s.bans.Banned(ctx, nowMs) {
			log.Warn("upstream ban raised mid-request, returning partial history")
			break
		}

		end := gap.End
		if cutoff := nowMs - intervalMs; end > cutoff {
			end = cutoff
		}
		if end <= gap.Start {
			continue
		}
		if err := s.fillGap(ctx, log, symbol, interval, gap.Start, end); err != nil {
			return nil, err
		}
	}

	return s.cache.Get(ctx, symbol, interval, from, to)
}

// fillGap fetches one missing sub-range with bounded retry and exponential
// backoff, then merges the result through the cache.
func (s *Service) fillGap(ctx context.Context, log *logger.Entry, symbol, interval string, start, end int64) error {
	delay := s.retryDelay
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		bars, err := s.provider.FetchBars(ctx, symbol, interval, start, upstream.MaxPageBars, end)
		if err == nil {
			logger.IncrementFetch(len(bars))
			if len(bars) == 0 {
				return nil
			}
			if err := s.cache.Set(ctx, symbol, interval, bars); err != nil {
				// Fetched data is still served from the fast tier; losing
				// the durable write is reported, not fatal to this read.
				log.WithError(err).Error("failed to persist fetched bars")
			}
			return nil
		}

		lastErr = err
		log.WithError(err).WithFields(logger.Fields{
			"attempt":   attempt,
			"gap_start": start,
			"gap_end":   end,
		}).Warn("gap fetch failed")

		if attempt < s.maxRetries {
			if serr := s.sleep(ctx, delay); serr != nil {
				return serr
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}
