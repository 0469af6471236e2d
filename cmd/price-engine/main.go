// Package main is the entry point for the Stacks token price engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stxquote/price-engine/business/api"
	"github.com/stxquote/price-engine/business/marketdata"
	marketdataDI "github.com/stxquote/price-engine/business/marketdata/di"
	"github.com/stxquote/price-engine/business/pricing"
	"github.com/stxquote/price-engine/internal/apm"
	"github.com/stxquote/price-engine/internal/config"
	"github.com/stxquote/price-engine/internal/health"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/metrics"
	"github.com/stxquote/price-engine/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("price-engine %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	// Run application
	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	log.Info(ctx, "starting price engine",
		"version", version,
		"environment", cfg.App.Environment,
		"anchor", cfg.Pricing.AnchorToken,
	)

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		// Set service name env var for OTEL
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		// Initialize tracing with Zipkin (local dev friendly)
		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		// Initialize metrics with Prometheus
		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		// Start Prometheus metrics server in background
		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Create monolith (application container)
	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	marketdataModule := &marketdata.Module{} // Provides vault snapshots
	pricingModule := &pricing.Module{}       // Depends on marketdata for snapshots
	apiModule := &api.Module{}               // Depends on pricing for the query surface

	// Register all module services
	if err := mono.RegisterModules(marketdataModule, pricingModule, apiModule); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	// Health check server with redis and snapshot freshness probes
	healthServer := health.NewServer(cfg.Server.HealthAddr, version)
	healthServer.RegisterCheck("redis", func(ctx context.Context) (bool, string) {
		if err := mono.Redis().Ping(ctx).Err(); err != nil {
			return false, err.Error()
		}
		return true, ""
	})
	healthServer.RegisterCheck("snapshot", func(ctx context.Context) (bool, string) {
		svc := marketdataDI.GetSnapshotService(mono.Services())
		snap, ok := svc.Current()
		if !ok {
			return false, "no snapshot yet"
		}
		if snap.IsStale(cfg.Pricing.MaxStale) {
			return false, fmt.Sprintf("snapshot is %s old", snap.Age().Round(time.Second))
		}
		return true, ""
	})
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "addr", cfg.Server.HealthAddr)
	}
	defer healthServer.Stop(ctx)

	// Start pricing first so the engine is subscribed before the snapshot
	// loop publishes its first refresh.
	if err := mono.StartModules(ctx, pricingModule, marketdataModule, apiModule); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	log.Info(ctx, "all modules started, serving prices")

	// Wait for shutdown
	<-ctx.Done()
	log.Info(context.Background(), "shutting down")
	return nil
}
