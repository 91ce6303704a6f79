package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/shadow-links/internal/ratelimit"
)

// sweepEvery controls how many Record calls pass between sweeps of idle keys.
const sweepEvery = 1024

type requestWindow struct {
	hits   []time.Time
	window time.Duration
}

// RateLimitMemoryStore is an in-memory sliding-window ratelimit.Store for a single instance.
type RateLimitMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*requestWindow
	calls   int
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		windows: make(map[string]*requestWindow),
	}
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	s.calls++
	if s.calls%sweepEvery == 0 {
		s.sweep(now)
	}

	w, ok := s.windows[key]
	if !ok {
		w = &requestWindow{window: window}
		s.windows[key] = w
	}

	w.hits = append(pruneBefore(w.hits, now.Add(-window)), now)

	return int64(len(w.hits)), nil
}

// Keys reports how many keys are currently tracked.
func (s *RateLimitMemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.windows)
}

func (s *RateLimitMemoryStore) sweep(now time.Time) {
	for key, w := range s.windows {
		if len(pruneBefore(w.hits, now.Add(-w.window))) == 0 {
			delete(s.windows, key)
		}
	}
}

// pruneBefore drops timestamps not after cutoff. hits is sorted ascending.
func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}

	return hits[i:]
}

var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)
