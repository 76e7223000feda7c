package usecases_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
)

// --- Mock PropertyRepository ---

type mockPropertyRepo struct {
	listFn         func(ctx context.Context, offset, limit int) ([]domain.PropertyRecord, error)
	findInBoundsFn func(ctx context.Context, b domain.Bounds, limit int) ([]domain.PropertyRecord, error)
	countFn        func(ctx context.Context) (int, error)
}

func (m *mockPropertyRepo) List(ctx context.Context, offset, limit int) ([]domain.PropertyRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, nil
}

func (m *mockPropertyRepo) FindInBounds(ctx context.Context, b domain.Bounds, limit int) ([]domain.PropertyRecord, error) {
	if m.findInBoundsFn != nil {
		return m.findInBoundsFn(ctx, b, limit)
	}
	return nil, nil
}

func (m *mockPropertyRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockPropertyRepo) UpsertBatch(ctx context.Context, records []domain.PropertyRecord) error {
	return nil
}

// --- In-memory CacheService ---

var errCacheMiss = errors.New("cache miss")

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

func (c *memCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// --- Mock RecordSource ---

type mockSource struct {
	mu      sync.Mutex
	calls   int
	fetchFn func(ctx context.Context, limit int) ([]domain.PropertyRecord, error)
}

func (m *mockSource) FetchRecords(ctx context.Context, limit int) ([]domain.PropertyRecord, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	publishRefreshedFn func(ctx context.Context, event *domain.ListingsRefreshed) error
	publishSnapshotFn  func(ctx context.Context, sessionID string, data []byte) error
}

func (m *mockPublisher) PublishListingsRefreshed(ctx context.Context, event *domain.ListingsRefreshed) error {
	if m.publishRefreshedFn != nil {
		return m.publishRefreshedFn(ctx, event)
	}
	return nil
}

func (m *mockPublisher) PublishSnapshot(ctx context.Context, sessionID string, data []byte) error {
	if m.publishSnapshotFn != nil {
		return m.publishSnapshotFn(ctx, sessionID, data)
	}
	return nil
}

// --- Fixtures ---

var saoPaulo = domain.LonLat{Lon: -46.6333, Lat: -23.5505}

func listing(id string, lon, lat float64, price int64) domain.PropertyRecord {
	return domain.PropertyRecord{
		ID:        id,
		Title:     "Apartamento " + id,
		Slug:      "apartamento-" + id,
		Price:     price,
		Type:      domain.ListingSale,
		City:      "São Paulo",
		State:     "SP",
		Latitude:  domain.Coord(lat),
		Longitude: domain.Coord(lon),
		Images:    domain.Images{"/img/" + id + ".jpg"},
	}
}
