package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// TaskQueue is the queue the refresher worker polls.
const TaskQueue = "listings-refresh"

// RefreshInput is the input for the listings refresh workflow.
type RefreshInput struct {
	// Source names what triggered the refresh, e.g. "schedule" or "ingestor".
	Source string
}

// RefreshResult summarises one refresh.
type RefreshResult struct {
	Count       int
	Invalidated int
}

// RefreshListingsWorkflow counts the stored listings, clears the feed cache and
// announces the refresh so live explorers fetch again. A failed cache
// invalidation only delays freshness by the cache TTL, so the announcement
// still goes out.
func RefreshListingsWorkflow(ctx workflow.Context, input RefreshInput) (RefreshResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting listings refresh", "source", input.Source)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var res RefreshResult

	// Step 1: Count listings
	if err := workflow.ExecuteActivity(ctx, "CountListings").Get(ctx, &res.Count); err != nil {
		return res, err
	}

	// Step 2: Invalidate cached feed responses
	if err := workflow.ExecuteActivity(ctx, "InvalidateFeedCache").Get(ctx, &res.Invalidated); err != nil {
		logger.Warn("feed cache invalidation failed", "error", err)
	}

	// Step 3: Announce
	if err := workflow.ExecuteActivity(ctx, "AnnounceRefresh", input.Source, res.Count).Get(ctx, nil); err != nil {
		return res, err
	}

	logger.Info("Listings refresh announced", "count", res.Count, "invalidated", res.Invalidated)
	return res, nil
}
