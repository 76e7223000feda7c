package ports

import (
	"context"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
)

// RecordSource yields the raw property records an explorer starts from.
type RecordSource interface {
	FetchRecords(ctx context.Context, limit int) ([]domain.PropertyRecord, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishListingsRefreshed(ctx context.Context, event *domain.ListingsRefreshed) error
	PublishSnapshot(ctx context.Context, sessionID string, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeListingsRefreshed(ctx context.Context, handler func(ctx context.Context, event *domain.ListingsRefreshed) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}
