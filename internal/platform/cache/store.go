package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/statfuse/statfuse/internal/platform/resilience"
)

// Store is a process-local TTL cache. GetOrLoad collapses concurrent
// loads for the same key into one.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	flight  resilience.SingleFlight
}

type entry struct {
	value    any
	deadline time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && !now.Before(e.deadline)
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
	}
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		delete(s.entries, key)
		return nil, false
	}

	return e.value, true
}

func (s *Store) Set(_ context.Context, key string, value any) {
	if key == "" {
		return
	}

	e := &entry{value: value}
	if s.ttl > 0 {
		e.deadline = time.Now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

func (s *Store) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// GetOrLoad returns the cached value for key or runs loader to fill it.
// Concurrent callers with the same key share a single loader run; the
// double Get inside the flight keeps late arrivals off the loader.
func (s *Store) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		s.Set(ctx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}
