package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
)

type fakeStore struct {
	count         int
	countErr      error
	invalidated   int
	invalidateErr error
}

func (f *fakeStore) Count(ctx context.Context) (int, error) { return f.count, f.countErr }

func (f *fakeStore) InvalidateCache(ctx context.Context) (int, error) {
	return f.invalidated, f.invalidateErr
}

type fakePublisher struct {
	events []domain.ListingsRefreshed
	err    error
}

func (f *fakePublisher) PublishListingsRefreshed(ctx context.Context, event *domain.ListingsRefreshed) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakePublisher) PublishSnapshot(ctx context.Context, sessionID string, data []byte) error {
	return nil
}

func runRefresh(t *testing.T, acts *RefreshActivities) (RefreshResult, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(RefreshListingsWorkflow)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(RefreshListingsWorkflow, RefreshInput{Source: "schedule"})
	require.True(t, env.IsWorkflowCompleted())

	var res RefreshResult
	if err := env.GetWorkflowError(); err != nil {
		return res, err
	}
	require.NoError(t, env.GetWorkflowResult(&res))
	return res, nil
}

func TestRefreshListingsWorkflow(t *testing.T) {
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	pub := &fakePublisher{}
	acts := &RefreshActivities{
		Listings:  &fakeStore{count: 1234, invalidated: 7},
		Publisher: pub,
		Now:       func() time.Time { return fixed },
	}

	res, err := runRefresh(t, acts)
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Count: 1234, Invalidated: 7}, res)

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.ListingsRefreshed{Source: "schedule", Count: 1234, Refreshed: fixed}, pub.events[0])
}

func TestRefreshListingsWorkflow_InvalidationFailureStillAnnounces(t *testing.T) {
	pub := &fakePublisher{}
	acts := &RefreshActivities{
		Listings:  &fakeStore{count: 3, invalidateErr: errors.New("valkey down")},
		Publisher: pub,
	}

	res, err := runRefresh(t, acts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Zero(t, res.Invalidated)
	assert.Len(t, pub.events, 1)
}

func TestRefreshListingsWorkflow_CountFailure(t *testing.T) {
	pub := &fakePublisher{}
	acts := &RefreshActivities{
		Listings:  &fakeStore{countErr: errors.New("db down")},
		Publisher: pub,
	}

	_, err := runRefresh(t, acts)
	require.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestRefreshListingsWorkflow_AnnounceFailure(t *testing.T) {
	acts := &RefreshActivities{
		Listings:  &fakeStore{count: 1},
		Publisher: &fakePublisher{err: errors.New("nats down")},
	}

	_, err := runRefresh(t, acts)
	assert.Error(t, err)
}

func TestAnnounceRefresh_NoPublisher(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(&RefreshActivities{Listings: &fakeStore{}})

	_, err := env.ExecuteActivity("AnnounceRefresh", "manual", 0)
	assert.NoError(t, err)
}
