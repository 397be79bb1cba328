package cache

import (
	"context"
	"sync"
	"time"

	"github.com/liquorledger/backend/internal/domain/shared"
)

// DefaultCleanupInterval is how often expired keys are swept from memory
const DefaultCleanupInterval = 5 * time.Minute

// InMemoryIdempotencyStore implements shared.IdempotencyStore inside the process.
// It suits single-instance deployments and tests; keys are lost on restart.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	keys      map[string]time.Time // key -> expiration time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store sweeping expired keys every DefaultCleanupInterval
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return NewInMemoryIdempotencyStoreWithInterval(DefaultCleanupInterval)
}

// NewInMemoryIdempotencyStoreWithInterval creates a store with a custom sweep interval
func NewInMemoryIdempotencyStoreWithInterval(interval time.Duration) *InMemoryIdempotencyStore {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	store := &InMemoryIdempotencyStore{
		keys:     make(map[string]time.Time),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop(interval)

	return store
}

// Claim records key until now+ttl. An expired key can be claimed again.
func (s *InMemoryIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiresAt, ok := s.keys[key]; ok && now.Before(expiresAt) {
		return false, nil
	}

	s.keys[key] = now.Add(ttl)
	return true, nil
}

// Seen reports whether key is held and not yet expired
func (s *InMemoryIdempotencyStore) Seen(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, ok := s.keys[key]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiresAt), nil
}

// Release forgets key
func (s *InMemoryIdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

// Size returns the number of keys currently stored, expired ones included
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func (s *InMemoryIdempotencyStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, expiresAt := range s.keys {
		if !now.Before(expiresAt) {
			delete(s.keys, key)
		}
	}
}

// Ensure InMemoryIdempotencyStore implements shared.IdempotencyStore
var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
