package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmcloughlin/geohash"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/explorer"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
	"github.com/arboimoveis/mapexplorer/internal/pkg/geospatial"
	"github.com/arboimoveis/mapexplorer/internal/pkg/metrics"
)

const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 500

	// PropertyCachePrefix namespaces every cached feed and search response.
	PropertyCachePrefix = "properties:"

	feedCacheTTL   = 60
	searchCacheTTL = 60

	// searchCellPrecision keys searches by ~5m cells so nearby clicks share an entry.
	searchCellPrecision = 9
)

var tracer = otel.Tracer("github.com/arboimoveis/mapexplorer/internal/core/usecases")

// SearchQuery is a one-shot filter over the stored listings.
type SearchQuery struct {
	Center       domain.LonLat
	RadiusMeters float64
	MinPrice     int64
	MaxPrice     int64
}

// SearchResult is the filtered listings as map points.
type SearchResult struct {
	Count  int                 `json:"count"`
	Points []domain.GeoFeature `json:"points"`
}

// FeatureCollection encodes the points as GeoJSON.
func (r *SearchResult) FeatureCollection() domain.FeatureCollection {
	return explorer.FeatureCollection(r.Points)
}

// PropertyService serves the record feed and one-shot searches from the
// listings store.
type PropertyService struct {
	repo  ports.PropertyRepository
	cache ports.CacheService
}

// NewPropertyService creates a new PropertyService. cache may be nil.
func NewPropertyService(repo ports.PropertyRepository, cache ports.CacheService) *PropertyService {
	return &PropertyService{repo: repo, cache: cache}
}

// List returns the newest listings, the payload of the record feed.
func (s *PropertyService) List(ctx context.Context, limit int) ([]domain.PropertyRecord, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}

	ctx, span := tracer.Start(ctx, "PropertyService.List")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit))

	cacheKey := fmt.Sprintf("%sfeed:%d", PropertyCachePrefix, limit)
	var records []domain.PropertyRecord
	if s.cached(ctx, "feed", cacheKey, &records) {
		return records, nil
	}

	start := time.Now()
	records, err := s.repo.List(ctx, 0, limit)
	metrics.FeedFetchDuration.WithLabelValues("database").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FeedFetchErrors.WithLabelValues("database").Inc()
		return nil, fmt.Errorf("list properties: %w", err)
	}
	if records == nil {
		records = []domain.PropertyRecord{}
	}

	s.store(ctx, cacheKey, records, feedCacheTTL)
	return records, nil
}

// Page returns one page of listings, newest first, and the total count.
func (s *PropertyService) Page(ctx context.Context, offset, limit int) ([]domain.PropertyRecord, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > MaxFeedLimit {
		limit = DefaultFeedLimit
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}
	if offset >= total {
		return []domain.PropertyRecord{}, total, nil
	}
	records, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	return records, total, nil
}

// FetchRecords implements ports.RecordSource for explorers running in process.
func (s *PropertyService) FetchRecords(ctx context.Context, limit int) ([]domain.PropertyRecord, error) {
	return s.List(ctx, limit)
}

// Search filters stored listings around a center with the same pipeline an
// explorer uses. The radius is clamped like the explorer's slider.
func (s *PropertyService) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	if q.Center.Lat < -90 || q.Center.Lat > 90 || q.Center.Lon < -180 || q.Center.Lon > 180 {
		return nil, fmt.Errorf("%w: center %v out of range", domain.ErrInvalidRange, q.Center)
	}
	if q.RadiusMeters <= 0 {
		q.RadiusMeters = domain.DefaultSearchRadius
	}
	q.RadiusMeters = min(max(q.RadiusMeters, domain.MinSearchRadius), domain.MaxSearchRadius)
	if q.MaxPrice <= 0 {
		q.MaxPrice = domain.DefaultPriceCeiling
	}

	ctx, span := tracer.Start(ctx, "PropertyService.Search")
	defer span.End()

	cell := geohash.EncodeWithPrecision(q.Center.Lat, q.Center.Lon, searchCellPrecision)
	cacheKey := fmt.Sprintf("%ssearch:%s:%.0f:%d:%d", PropertyCachePrefix, cell, q.RadiusMeters, q.MinPrice, q.MaxPrice)
	var result SearchResult
	if s.cached(ctx, "search", cacheKey, &result) {
		return &result, nil
	}

	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(q.Center.Lat, q.Center.Lon, q.RadiusMeters)
	candidates, err := s.repo.FindInBounds(ctx, domain.Bounds{
		MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon,
	}, MaxFeedLimit)
	if err != nil {
		return nil, fmt.Errorf("find properties in bounds: %w", err)
	}

	center := q.Center
	filtered := explorer.ApplyFilters(candidates, domain.FilterState{
		PriceMin:           q.MinPrice,
		PriceMax:           q.MaxPrice,
		SearchCenter:       &center,
		SearchRadiusMeters: q.RadiusMeters,
	})
	result = SearchResult{
		Count:  len(filtered),
		Points: explorer.ToFeatures(filtered),
	}
	span.SetAttributes(attribute.Int("candidates", len(candidates)), attribute.Int("matches", result.Count))

	s.store(ctx, cacheKey, result, searchCacheTTL)
	return &result, nil
}

// Count returns the number of stored listings.
func (s *PropertyService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// InvalidateCache drops every cached feed and search response.
func (s *PropertyService) InvalidateCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.DeletePrefix(ctx, PropertyCachePrefix)
}

func (s *PropertyService) cached(ctx context.Context, op, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err == nil && json.Unmarshal(data, dst) == nil {
		metrics.CacheHits.WithLabelValues(op).Inc()
		return true
	}
	metrics.CacheMisses.WithLabelValues(op).Inc()
	return false
}

func (s *PropertyService) store(ctx context.Context, key string, v any, ttl int) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.cache.Set(ctx, key, data, ttl)
	}
}
