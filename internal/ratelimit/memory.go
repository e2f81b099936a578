package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	last      time.Time
	expiresAt time.Time
}

// MemoryStore is an in-process Store for single-instance deployments and
// tests. A background janitor sweeps expired entries the same way live
// reads treat them: a claim past its expiry is vacant.
type MemoryStore struct {
	mu     sync.Mutex
	items  map[string]memoryEntry
	stopCh chan struct{}

	// now is swapped out by tests to drive window expiry.
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		items:  make(map[string]memoryEntry),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
	go s.cleanup()
	return s
}

func (s *MemoryStore) Acquire(_ context.Context, key string, now time.Time, ttl time.Duration) (bool, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if ok && s.now().Before(e.expiresAt) {
		return false, e.last, nil
	}

	s.items[key] = memoryEntry{last: now, expiresAt: now.Add(ttl)}
	return true, time.Time{}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return time.Time{}, false, nil
	}
	return e.last, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		return false, nil
	}
	delete(s.items, key)
	return s.now().Before(e.expiresAt), nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	close(s.stopCh)
	return nil
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopCh:
			return
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.items {
		if !now.Before(e.expiresAt) {
			delete(s.items, key)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
