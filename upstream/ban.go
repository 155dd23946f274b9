package upstream

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"chartflow/cache"
	"chartflow/logger"
)

// DefaultBanKey is the shared key under which the provider manager records
// the upstream unblock timestamp after a rate-limit ban.
const DefaultBanKey = "upstream:ban:unblock"

// BanGate reads the externally owned upstream ban state. It never writes
// the state; while banned the subsystem degrades to cache-only responses.
//
// The lookup is memoized for a short TTL so the gate can be consulted
// before every gap fetch without a round trip each time.
type BanGate struct {
	kv      cache.KV
	key     string
	memoTTL time.Duration
	log     *logger.Log

	mu   sync.Mutex
	memo banMemo
}

type banMemo struct {
	unblockMs int64
	expiresAt time.Time
}

func NewBanGate(kv cache.KV, key string, memoTTL time.Duration) *BanGate {
	if key == "" {
		key = DefaultBanKey
	}
	if memoTTL <= 0 {
		memoTTL = 5 * time.Second
	}
	return &BanGate{
		kv:      kv,
		key:     key,
		memoTTL: memoTTL,
		log:     logger.GetLogger(),
	}
}

// UnblockTime returns the recorded unblock timestamp in milliseconds, or 0
// when no ban is recorded.
func (g *BanGate) UnblockTime(ctx context.Context) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if time.Now().Before(g.memo.expiresAt) {
		return g.memo.unblockMs
	}

	var unblock int64
	blob, err := g.kv.Get(ctx, g.key)
	switch {
	case err == nil:
		v, perr := strconv.ParseInt(strings.TrimSpace(blob), 10, 64)
		if perr != nil {
			g.log.WithComponent("ban_gate").WithFields(logger.Fields{"value": blob}).Warn("unparseable ban state")
		} else {
			unblock = v
		}
	case errors.Is(err, cache.ErrCacheMiss):
		// no ban recorded
	default:
		// When the state cannot be read, assume not banned; the provider
		// itself will reject calls if the ban is real.
		g.log.WithComponent("ban_gate").WithError(err).Warn("failed to read ban state")
	}

	g.memo = banMemo{unblockMs: unblock, expiresAt: time.Now().Add(g.memoTTL)}
	return unblock
}

// Banned reports whether upstream calls are disabled at nowMs.
func (g *BanGate) Banned(ctx context.Context, nowMs int64) bool {
	return g.UnblockTime(ctx) > nowMs
}
