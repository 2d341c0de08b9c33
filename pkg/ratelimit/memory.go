package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	hits   []time.Time
	length time.Duration
}

// MemoryStore is a mutex guarded map of hit timestamps with a background sweeper.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryStore starts a sweeper that drops idle keys every sweepInterval.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

func (s *MemoryStore) Allow(_ context.Context, key string, rule Rule) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok {
		w = &window{length: rule.Window}
		s.windows[key] = w
	}
	w.length = rule.Window
	w.hits = prune(w.hits, now, rule.Window)

	if len(w.hits) >= rule.Limit {
		if len(w.hits) == 0 {
			return Result{Allowed: false, RetryAfter: rule.Window}, nil
		}
		return Result{
			Allowed:    false,
			RetryAfter: w.hits[0].Add(rule.Window).Sub(now),
		}, nil
	}

	w.hits = append(w.hits, now)
	return Result{
		Allowed:   true,
		Remaining: rule.Limit - len(w.hits),
	}, nil
}

// Close stops the sweeper.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.windows {
		w.hits = prune(w.hits, now, w.length)
		if len(w.hits) == 0 {
			delete(s.windows, key)
		}
	}
}

func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func prune(hits []time.Time, now time.Time, length time.Duration) []time.Time {
	valid := hits[:0]
	for _, t := range hits {
		if now.Sub(t) < length {
			valid = append(valid, t)
		}
	}
	return valid
}
