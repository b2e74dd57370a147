package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hybridq/hybrid-core/internal/jobs"
	"github.com/hybridq/hybrid-core/internal/metrics"
	"github.com/hybridq/hybrid-core/internal/quantum"
	"github.com/hybridq/hybrid-core/pkg/config"
	"github.com/hybridq/hybrid-core/pkg/logger"
)

// sinkFactory builds the per-job metric sink declared by the metrics
// configuration. The in-process collector is wired separately by the
// executor, so this covers only the external shipping target.
func sinkFactory(cfg *config.Config) (jobs.SinkFactory, error) {
	switch cfg.Metrics.Sink {
	case "", "log":
		return func(jobID string) metrics.Sink {
			return metrics.NewLogSink(os.Stdout)
		}, nil
	case "redis":
		redisCfg := cfg.Metrics.Redis
		if redisCfg == nil {
			redisCfg = &config.Redis{Addr: "localhost:6379"}
		}
		ttl, err := redisCfg.GetTTL()
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(&redis.Options{
			Addr: redisCfg.Addr,
			DB:   redisCfg.DB,
		})
		return func(jobID string) metrics.Sink {
			return metrics.NewRedisSink(client, jobID, ttl)
		}, nil
	default:
		return nil, fmt.Errorf("unknown metrics sink: %s", cfg.Metrics.Sink)
	}
}

func main() {
	var configPath string
	var httpAddr string
	var logLevel string

	flag.StringVar(&configPath, "config", "", "path to YAML config file (optional)")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error; overrides config)")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			logger.Error("failed to load config", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	registry, err := quantum.NewRegistryFromConfig(cfg.Devices)
	if err != nil {
		logger.Error("failed to build device registry", "error", err)
		stop()
		os.Exit(1)
	}

	sinkFor, err := sinkFactory(cfg)
	if err != nil {
		logger.Error("failed to build metrics sink", "sink", cfg.Metrics.Sink, "error", err)
		stop()
		os.Exit(1)
	}

	store := jobs.NewStore()
	executor := jobs.NewExecutor(store, registry, cfg.JobDefaults).
		WithSinkFactory(sinkFor).
		WithNotifier(jobs.NewNotifier())

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           jobs.NewHTTPServer(store, executor).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr,
			"devices", registry.Names(), "metrics_sink", cfg.Metrics.Sink)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
}
