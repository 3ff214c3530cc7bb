// SPDX-License-Identifier: MIT

// Command auraxd runs the game-event notification daemon: one stream
// connector per platform, the enrichment queue worker and the operations
// HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/auraxd/internal/api"
	"github.com/ManuGH/auraxd/internal/cache"
	"github.com/ManuGH/auraxd/internal/census"
	"github.com/ManuGH/auraxd/internal/config"
	"github.com/ManuGH/auraxd/internal/events"
	"github.com/ManuGH/auraxd/internal/log"
	"github.com/ManuGH/auraxd/internal/notify"
	"github.com/ManuGH/auraxd/internal/pipeline"
	"github.com/ManuGH/auraxd/internal/queue"
	"github.com/ManuGH/auraxd/internal/registry"
	"github.com/ManuGH/auraxd/internal/stream"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("auraxd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auraxd: %v\n", err)
		os.Exit(1)
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "auraxd",
		Version: version,
	})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().
			Err(err).
			Str(log.FieldEvent, "daemon.failed").
			Msg("daemon terminated")
	}

	logger.Info().
		Str(log.FieldEvent, "daemon.stopped").
		Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	reg, err := registry.Open(cfg.RegistryPath, registry.DefaultConfig())
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer reg.Close()

	enrichCache := buildCache(cfg, logger)

	censusClient := census.New(cfg.CensusURL, cfg.ServiceID,
		census.WithCache(enrichCache, cfg.CacheTTL),
	)

	sink := notify.NewWebhookSink(cfg.WebhookBase, cfg.SendRate, cfg.SendBurst)
	dispatcher := notify.NewDispatcher(sink, reg)
	processor := pipeline.New(censusClient, reg, dispatcher, 0)

	q := queue.New()
	router := events.NewRouter(q)

	connectors := make([]*stream.Connector, 0, len(cfg.Platforms))
	sources := make([]api.StatusSource, 0, len(cfg.Platforms))
	for _, platform := range cfg.Platforms {
		c := stream.NewConnector(stream.Config{
			Platform:        events.Platform(platform),
			URL:             cfg.StreamURL,
			ServiceID:       cfg.ServiceID,
			Worlds:          cfg.Worlds,
			BackoffBase:     cfg.BackoffBase,
			BackoffCap:      cfg.BackoffCap,
			StabilityWindow: cfg.StabilityWindow,
		}, router)
		connectors = append(connectors, c)
		sources = append(sources, c)
	}

	ops := api.NewServer(reg, sources)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           ops.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str(log.FieldEvent, "daemon.started").
		Str("listen_addr", cfg.ListenAddr).
		Strs("platforms", cfg.Platforms).
		Msg("daemon started")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return q.Run(gctx, processor)
	})

	for _, c := range connectors {
		c := c
		g.Go(func() error {
			return c.Run(gctx)
		})
	}

	g.Go(func() error {
		err := httpSrv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ops server: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildCache(cfg *config.Config, logger zerolog.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(time.Minute)
	}
	c, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "cache.redis_unavailable").
			Msg("redis unreachable, using in-memory cache")
		return cache.NewMemoryCache(time.Minute)
	}
	return c
}
