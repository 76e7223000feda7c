//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	handler "github.com/arboimoveis/mapexplorer/internal/adapters/http"
	"github.com/arboimoveis/mapexplorer/internal/adapters/postgres"
	"github.com/arboimoveis/mapexplorer/internal/adapters/scene"
	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/usecases"
	"github.com/arboimoveis/mapexplorer/internal/pkg/config"
)

// setupTestDB connects to the test database and returns a clean DB instance.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("mapexplorer-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return &postgres.DB{Pool: pool}
}

// setupTestDeps creates dependencies with the real repository, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *handler.Dependencies {
	props := usecases.NewPropertyService(postgres.NewPropertyRepo(db), nil)
	return &handler.Dependencies{
		Properties: props,
		Explorers: usecases.NewExplorerService(props, scene.NewFactory(), nil,
			usecases.ExplorerConfig{FeedLimit: 50}, nil),
		DB: db,
	}
}

// seedListings upserts listings around a point with ids prefixed by tag.
func seedListings(t *testing.T, db *postgres.DB, tag string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	records := make([]domain.PropertyRecord, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%d", tag, i)
		ids = append(ids, id)
		records = append(records, domain.PropertyRecord{
			ID:        id,
			Title:     "Apartamento " + id,
			Slug:      id,
			Price:     int64(400_000 + i*10_000),
			Type:      domain.ListingSale,
			Category:  "Apartamento",
			City:      "São Paulo",
			State:     "SP",
			Latitude:  domain.Coord(-23.5505 + float64(i)*0.0005),
			Longitude: domain.Coord(-46.6333),
			CreatedAt: time.Now().UTC(),
		}.Normalized())
	}
	if err := postgres.NewPropertyRepo(db).UpsertBatch(context.Background(), records); err != nil {
		t.Fatalf("seed listings: %v", err)
	}
	return ids
}

func TestListProperties_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	seedListings(t, db, "integ-list-"+time.Now().Format("150405"), 3)

	app := setupApp(setupTestDeps(t, db))

	req := httptest.NewRequest("GET", "/v1/properties?limit=2", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.PropertyRecord `json:"data"`
		Pagination struct{ Total int }     `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Total < 3 {
		t.Errorf("expected at least 3 listings, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected a page of 2, got %d", len(result.Data))
	}
}

func TestSearchProperties_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	seedListings(t, db, "integ-search-"+time.Now().Format("150405"), 4)

	app := setupApp(setupTestDeps(t, db))

	req := httptest.NewRequest("GET", "/v1/properties/search?lat=-23.5505&lon=-46.6333&radius=1000", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result handler.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Count < 4 {
		t.Errorf("expected at least 4 matches, got %d", result.Count)
	}
	if result.Features.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %q", result.Features.Type)
	}
}

func TestExplorerSession_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	seedListings(t, db, "integ-session-"+time.Now().Format("150405"), 2)

	deps := setupTestDeps(t, db)
	defer deps.Explorers.Close()
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/explorer/sessions", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var view handler.SessionView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.Snapshot.Count < 2 {
		t.Errorf("expected at least 2 cards, got %d", view.Snapshot.Count)
	}
}
