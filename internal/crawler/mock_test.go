package crawler

import (
	"context"
	"sync"
	"time"

	"sjsage522/soldlistings/internal/listing"
	"sjsage522/soldlistings/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
	ttl   map[string]time.Duration
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
		ttl:   make(map[string]time.Duration),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	m.ttl[key] = expiration
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// mockStrategy returns canned results and counts calls
type mockStrategy struct {
	name  string
	items []listing.RawItem
	err   error
	calls int
}

func (m *mockStrategy) Acquire(ctx context.Context, query Query) ([]listing.RawItem, error) {
	m.calls++
	return m.items, m.err
}

func (m *mockStrategy) GetName() string {
	return m.name
}
