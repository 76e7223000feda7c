package ports

import (
	"context"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
)

// PropertyRepository is the read model behind the record feed.
type PropertyRepository interface {
	// List returns the newest listings first.
	List(ctx context.Context, offset, limit int) ([]domain.PropertyRecord, error)
	// FindInBounds returns listings whose coordinates fall inside the box.
	FindInBounds(ctx context.Context, bounds domain.Bounds, limit int) ([]domain.PropertyRecord, error)
	Count(ctx context.Context) (int, error)
	UpsertBatch(ctx context.Context, records []domain.PropertyRecord) error
}
