// Package main is the entry point for the order book aggregator server:
// it wires the feed supervisor, the merge engine, and the summary stream
// behind the orderbook module, then serves book_summary subscribers until
// it is asked to shut down.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook"
	"github.com/keyrock-labs/orderbook-aggregator/internal/apm"
	"github.com/keyrock-labs/orderbook-aggregator/internal/config"
	"github.com/keyrock-labs/orderbook-aggregator/internal/health"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
	"github.com/keyrock-labs/orderbook-aggregator/internal/metrics"
	"github.com/keyrock-labs/orderbook-aggregator/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	// Positional CLI surface: server [<currency> [<port>]], defaulting to
	// ethbtc on 30253 per the reference configuration.
	var currencyArg, portArg string
	args := os.Args[1:]
	if len(args) > 0 {
		currencyArg = args[0]
	}
	if len(args) > 1 {
		portArg = args[1]
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, currencyArg, portArg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, currencyArg, portArg string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if currencyArg != "" {
		cfg.Exchanges.Currency = currencyArg
	}
	if portArg != "" {
		port, err := strconv.Atoi(portArg)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", portArg, err)
		}
		cfg.Server.Port = port
	}

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
	log.Info(ctx, "starting order book aggregator",
		"version", version, "commit", commit, "built", buildDate,
		"currency", cfg.Exchanges.Currency, "port", cfg.Server.Port,
	)

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.ZipkinEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
		)

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

	healthServer := health.NewServer(cfg.Telemetry.HealthPort, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Telemetry.HealthPort)
	}
	defer healthServer.Stop(ctx)

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()
	mono.Container().Register("health", healthServer)

	modules := []monolith.Module{
		&orderbook.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	<-ctx.Done()
	log.Info(ctx, "shutting down")
	return nil
}
