package respcache

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/opentransittools/pelias-refine/internal/db"
	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
)

type mockFetcher struct {
	calls atomic.Int32
	fn    func(endpoint string, params url.Values) (geocode.Response, error)
}

func (m *mockFetcher) Fetch(_ context.Context, endpoint string, params url.Values) (geocode.Response, error) {
	m.calls.Add(1)
	return m.fn(endpoint, params)
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	ttls  map[string]time.Duration
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockKVStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func labeled(label string) geocode.Feature {
	return geocode.Feature{Type: "Feature", Properties: &geocode.Properties{Label: label}}
}

func newTestCachedFetcher(t *testing.T, inner *mockFetcher, shared *mockKVStore) *CachedFetcher {
	t.Helper()
	cfg := Config{Size: 16, TTL: time.Minute}
	if shared == nil {
		return New(inner, nil, cfg, nil, zap.NewNop())
	}
	return New(inner, shared, cfg, nil, zap.NewNop())
}
