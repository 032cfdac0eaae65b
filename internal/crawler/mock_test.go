package crawler

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	apperrors "sjsage522/rentalworker/pkg/errors"
	"sjsage522/rentalworker/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

// mockFetcher serves canned pages keyed by URL. URLs listed in errs fail with
// the given error; unknown URLs fail with a 404 status error.
type mockFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
	}
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (io.Reader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, url)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	page, ok := m.pages[url]
	if !ok {
		return nil, apperrors.NewStatus(url, 404)
	}
	return strings.NewReader(page), nil
}

func (m *mockFetcher) Name() string {
	return "mock"
}

func (m *mockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
