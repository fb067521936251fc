// Package cache defines the byte-value cache contract used for market
// rate responses and other short-lived provider data.
package cache

import (
	"context"
	"time"
)

type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
