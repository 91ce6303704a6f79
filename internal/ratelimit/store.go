package ratelimit

import (
	"context"
	"time"
)

// Store counts requests per key over a sliding window.
type Store interface {
	// Record adds a hit for key now, drops hits older than window and
	// returns the number of hits left, the new one included.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}
