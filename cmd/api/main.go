package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/arboimoveis/mapexplorer/internal/adapters/feed"
	"github.com/arboimoveis/mapexplorer/internal/adapters/http"
	natsadapter "github.com/arboimoveis/mapexplorer/internal/adapters/nats"
	"github.com/arboimoveis/mapexplorer/internal/adapters/postgres"
	"github.com/arboimoveis/mapexplorer/internal/adapters/scene"
	"github.com/arboimoveis/mapexplorer/internal/adapters/valkey"
	"github.com/arboimoveis/mapexplorer/internal/core/domain"
	"github.com/arboimoveis/mapexplorer/internal/core/ports"
	"github.com/arboimoveis/mapexplorer/internal/core/usecases"
	"github.com/arboimoveis/mapexplorer/internal/pkg/config"
	"github.com/arboimoveis/mapexplorer/internal/pkg/logging"
	"github.com/arboimoveis/mapexplorer/internal/pkg/metrics"
	"github.com/arboimoveis/mapexplorer/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("mapexplorer-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(),
		postgres.WithMaxConns(cfg.Database.MaxConns),
		postgres.WithMaxConnIdle(cfg.Database.IdleTimeout()),
	)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		vc = nil
	} else {
		cache = vc
		defer vc.Close()
	}

	// NATS
	var (
		publisher ports.EventPublisher
		natsConn  *nats.Conn
	)
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		publisher = pub
		natsConn = pub.Conn()
		defer pub.Close()
	}

	// Use cases
	props := usecases.NewPropertyService(postgres.NewPropertyRepo(db), cache)

	var source ports.RecordSource = props
	if cfg.Explorer.FeedURL != "" {
		client, err := feed.NewClient(cfg.Explorer.FeedURL)
		if err != nil {
			log.Fatalf("feed client: %v", err)
		}
		source = client
		slog.Info("explorers read the remote feed", "url", cfg.Explorer.FeedURL)
	}

	explorers := usecases.NewExplorerService(source, scene.NewFactory(), publisher, usecases.ExplorerConfig{
		FeedLimit:    cfg.Explorer.FeedLimit,
		PriceCeiling: cfg.Explorer.PriceCeiling,
		MinRadius:    cfg.Explorer.MinRadius,
		MaxRadius:    cfg.Explorer.MaxRadius,
		SessionTTL:   time.Duration(cfg.Explorer.SessionTTL) * time.Second,
		MaxSessions:  cfg.Explorer.MaxSessions,
	}, slog.Default().With("component", "explorer"))
	defer explorers.Close()

	go func() {
		if err := explorers.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("explorer service stopped", "error", err)
		}
	}()

	// Listings refresh events, delivered to every API instance
	if publisher != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			err := sub.SubscribeListingsRefreshed(ctx, func(ctx context.Context, event *domain.ListingsRefreshed) error {
				if _, err := props.InvalidateCache(ctx); err != nil {
					slog.Warn("invalidate feed cache", "error", err)
				}
				return explorers.HandleListingsRefreshed(ctx, event)
			})
			if err != nil {
				slog.Warn("subscribe listings.refreshed", "error", err)
			}
		}
	}

	// Pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	deps := &http.Dependencies{
		Properties: props,
		Explorers:  explorers,
		NATS:       natsConn,
		DB:         db,
		Cache:      vc,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Map Explorer API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
