package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by KV.Get when the key has no value.
var ErrCacheMiss = errors.New("cache miss")

// KV is the fast-tier capability: get/set of string blobs by key.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
