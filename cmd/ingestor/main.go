package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	natsadapter "github.com/arboimoveis/mapexplorer/internal/adapters/nats"
	"github.com/arboimoveis/mapexplorer/internal/adapters/postgres"
	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/pkg/config"
	"github.com/arboimoveis/mapexplorer/internal/pkg/logging"
)

const (
	defaultSeed   = "seed/properties.json"
	batchSize     = 500
	parallelFiles = 4
)

func main() {
	cfg, err := config.Load("mapexplorer-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	files := os.Args[1:]
	if len(files) == 0 {
		files = []string{defaultSeed}
	}

	schema, err := compileSeedSchema()
	if err != nil {
		log.Fatalf("schema: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(),
		postgres.WithMaxConns(cfg.Database.MaxConns),
		postgres.WithMaxConnIdle(cfg.Database.IdleTimeout()),
	)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	repo := postgres.NewPropertyRepo(db)

	start := time.Now()
	var total atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelFiles)
	for _, f := range files {
		g.Go(func() error {
			records, err := loadSeedFile(schema, f, start.UTC())
			if err != nil {
				return err
			}
			for _, batch := range chunks(records, batchSize) {
				if err := repo.UpsertBatch(gctx, batch); err != nil {
					return err
				}
				total.Add(int64(len(batch)))
			}
			slog.Info("seed file ingested", "file", f, "listings", len(records))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("ingest: %v", err)
	}

	count := int(total.Load())
	slog.Info("ingest complete", "files", len(files), "listings", count, "elapsed", time.Since(start).String())

	// Live explorers refetch once they hear about it
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, refresh not announced", "error", err)
		return
	}
	defer pub.Close()

	if err := pub.PublishListingsRefreshed(ctx, &domain.ListingsRefreshed{
		Source:    "ingestor",
		Count:     count,
		Refreshed: time.Now().UTC(),
	}); err != nil {
		slog.Warn("announce refresh", "error", err)
	}
}
