package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/arboimoveis/mapexplorer/internal/adapters/nats"
	"github.com/arboimoveis/mapexplorer/internal/adapters/postgres"
	"github.com/arboimoveis/mapexplorer/internal/adapters/valkey"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
	"github.com/arboimoveis/mapexplorer/internal/core/usecases"
	"github.com/arboimoveis/mapexplorer/internal/pkg/config"
	"github.com/arboimoveis/mapexplorer/internal/pkg/logging"
	"github.com/arboimoveis/mapexplorer/internal/workflows"
)

const cronWorkflowID = "listings-refresh-cron"

func main() {
	cfg, err := config.Load("mapexplorer-refresher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(),
		postgres.WithMaxConns(cfg.Database.MaxConns),
		postgres.WithMaxConnIdle(cfg.Database.IdleTimeout()),
	)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, cache not invalidated", "error", err)
	} else {
		cache = vc
		defer vc.Close()
	}

	acts := &workflows.RefreshActivities{
		Listings: usecases.NewPropertyService(postgres.NewPropertyRepo(db), cache),
	}
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, refreshes not announced", "error", err)
	} else {
		acts.Publisher = pub
		defer pub.Close()
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default().With("component", "temporal")),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	queue := cfg.Temporal.TaskQueue
	if queue == "" {
		queue = workflows.TaskQueue
	}
	w := worker.New(c, queue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.RefreshListingsWorkflow)
	w.RegisterActivity(acts)

	// An already running cron execution is reused.
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           cronWorkflowID,
		TaskQueue:    queue,
		CronSchedule: fmt.Sprintf("*/%d * * * *", cfg.Temporal.IntervalMinutes),
	}, workflows.RefreshListingsWorkflow, workflows.RefreshInput{Source: "schedule"})
	if err != nil {
		log.Fatalf("start refresh schedule: %v", err)
	}
	slog.Info("refresh schedule active", "workflow", run.GetID(), "run", run.GetRunID(),
		"every_minutes", cfg.Temporal.IntervalMinutes)

	slog.Info("refresher worker started", "queue", queue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
