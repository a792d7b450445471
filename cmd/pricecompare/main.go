// Package main is the entry point for the pricing comparison server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricecompare/config"
	"pricecompare/internal/aggregator"
	"pricecompare/internal/catalog"
	"pricecompare/internal/httpclient"
	"pricecompare/internal/logging"
	"pricecompare/internal/pricecache"
	"pricecompare/internal/providers"
	"pricecompare/internal/server"
	"pricecompare/internal/version"

	// Import provider packages to trigger their init() registration
	_ "pricecompare/internal/providers/aws"
	_ "pricecompare/internal/providers/azure"
	_ "pricecompare/internal/providers/gcp"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logging.Setup(cfg.LogFormat, cfg.LogLevel)

	slog.Info("starting pricecompare",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	// Cache store: Redis when configured, in-memory otherwise
	var store pricecache.Store
	if cfg.RedisURL != "" {
		store, err = pricecache.NewRedisStore(pricecache.RedisConfig{URL: cfg.RedisURL})
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
	} else {
		store = pricecache.NewMemoryStore()
		slog.Info("using in-memory price cache")
	}
	cache := pricecache.New(store, pricecache.Options{
		TTL:         cfg.CacheTTL,
		NegativeTTL: cfg.NegativeCacheTTL,
	})
	defer cache.Close()

	// Service equivalency catalog
	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		slog.Error("failed to load service catalog", "error", err)
		os.Exit(1)
	}

	// Build one resolver per enabled provider
	deps := providers.Deps{
		Cache:      cache,
		HTTPClient: httpclient.NewDefaultHTTPClient(),
	}
	resolvers := make([]aggregator.CompareResolver, 0, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		r, err := providers.Create(pc, deps)
		if err != nil {
			slog.Error("failed to build provider resolver", "provider", name, "error", err)
			os.Exit(1)
		}
		resolvers = append(resolvers, r.(aggregator.CompareResolver))
		slog.Info("provider enabled", "provider", name)
	}
	agg := aggregator.New(cat, cfg.CompareTimeout, resolvers...)

	if cfg.MasterKey == "" {
		slog.Warn("MASTER_KEY not set, API routes are unauthenticated")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	// Create and start server
	serverCfg := &server.Config{
		MasterKey:      cfg.MasterKey,
		MetricsEnabled: cfg.MetricsEnabled,
	}
	srv := server.New(agg, cat, serverCfg)

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("starting server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}
