package upstream

import (
	"context"

	"chartflow/models"
)

// MaxPageBars is the pagination bound the provider imposes on a single
// klines request.
const MaxPageBars = 500

// Provider fetches OHLCV bars from the upstream market-data source.
// Implementations return bars ordered ascending by timestamp, starting at
// startMs, at most limit bars, and none later than untilMs when it is
// positive.
type Provider interface {
	FetchBars(ctx context.Context, symbol, interval string, startMs int64, limit int, untilMs int64) ([]models.Bar, error)
}
