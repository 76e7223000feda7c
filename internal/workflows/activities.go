package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
)

// ListingStore is the part of the property service the refresh needs.
type ListingStore interface {
	Count(ctx context.Context) (int, error)
	InvalidateCache(ctx context.Context) (int, error)
}

// RefreshActivities holds the activity implementations for the listings refresh workflow.
type RefreshActivities struct {
	Listings  ListingStore
	Publisher ports.EventPublisher
	// Now defaults to time.Now.
	Now func() time.Time
}

// CountListings returns how many listings the store holds.
func (a *RefreshActivities) CountListings(ctx context.Context) (int, error) {
	n, err := a.Listings.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}

// InvalidateFeedCache drops cached feed and search responses so the next
// fetch reads the store.
func (a *RefreshActivities) InvalidateFeedCache(ctx context.Context) (int, error) {
	n, err := a.Listings.InvalidateCache(ctx)
	if err != nil {
		return 0, fmt.Errorf("invalidate feed cache: %w", err)
	}
	activity.GetLogger(ctx).Info("feed cache invalidated", "keys", n)
	return n, nil
}

// AnnounceRefresh tells every api instance to refresh its explorer sessions.
func (a *RefreshActivities) AnnounceRefresh(ctx context.Context, source string, count int) error {
	if a.Publisher == nil {
		activity.GetLogger(ctx).Warn("no publisher, refresh not announced", "source", source)
		return nil
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	return a.Publisher.PublishListingsRefreshed(ctx, &domain.ListingsRefreshed{
		Source:    source,
		Count:     count,
		Refreshed: now().UTC(),
	})
}
