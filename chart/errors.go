package chart

import "errors"

var (
	// ErrUpstreamUnavailable means a gap fetch exhausted its retries. The
	// whole request fails; partial data is never silently returned.
	ErrUpstreamUnavailable = errors.New("upstream market data unavailable")

	// ErrProviderUnavailable means no upstream client is configured.
	ErrProviderUnavailable = errors.New("market data provider not configured")
)
