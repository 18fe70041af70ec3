// Package main implements semqueue, a load driver for the bounded blocking
// queue. It pushes a configured workload through one queue and verifies
// exactly-once delivery.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/semqueue/config"
	"github.com/c360/semqueue/health"
	"github.com/c360/semqueue/metric"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semqueue"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()

	if err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cliCfg, err := parseFlags(fs, args)
	if err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return fmt.Errorf("parse flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		fs.SetOutput(stdout)
		printDetailedHelp(fs)
		return nil
	}

	logger := setupLogger(stdout, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		logger.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		_, _ = fmt.Fprint(stdout, cfg.String())
		return nil
	}

	logger.Info("Starting semqueue load driver",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	monitor := health.NewMonitor()

	var registry *metric.MetricsRegistry
	if cfg.Metrics.Enabled {
		registry = metric.NewMetricsRegistry()
		server, err := startMetricsServer(cfg, registry, monitor)
		if err != nil {
			return err
		}
		logger.Info("Metrics server listening", "address", server.Address())
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(stopCtx); err != nil {
				logger.Warn("Metrics server shutdown failed", "error", err)
			}
		}()
	}

	driver := NewDriver(cfg, logger, registry, monitor)
	report, err := driver.Run(ctx, cliCfg.ShutdownTimeout)
	if err != nil {
		return fmt.Errorf("run workload: %w", err)
	}

	logReport(logger, report)

	if err := report.Verify(); err != nil {
		return fmt.Errorf("verify delivery: %w", err)
	}

	if ctx.Err() != nil {
		logger.Info("Run interrupted by signal; partial workload verified")
	}
	return nil
}

// loadConfig loads configuration from the given path, or defaults plus
// environment overrides when path is empty
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.AddLayer(path)
	}
	return loader.Load()
}

func startMetricsServer(cfg *config.Config, registry *metric.MetricsRegistry, monitor *health.Monitor) (*metric.Server, error) {
	server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
	server.SetHealthCheck(func() health.Status {
		return monitor.AggregateHealth(appName)
	})
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("start metrics server: %w", err)
	}
	return server, nil
}

func logReport(logger *slog.Logger, r *Report) {
	throughput := 0.0
	if r.Duration > 0 {
		throughput = float64(r.Consumed) / r.Duration.Seconds()
	}

	logger.Info("Run complete",
		"mode", r.Mode,
		"produced", r.Produced,
		"consumed", r.Consumed,
		"cleared", r.Cleared,
		"fallbacks", r.Fallbacks,
		"duplicates", r.Duplicates,
		"missing", r.Missing,
		"duration", r.Duration,
		"items_per_second", throughput)

	logger.Info("Queue statistics",
		"max_size", r.Queue.MaxSize,
		"blocked_enqueues", r.Queue.BlockedEnqueues,
		"blocked_dequeues", r.Queue.BlockedDequeues,
		"clears", r.Queue.Clears,
		"revalidations", r.Queue.Revalidations,
		"rejects", r.Queue.Rejects)

	if r.Pool != nil {
		logger.Info("Worker pool statistics",
			"workers", r.Pool.Workers,
			"submitted", r.Pool.Submitted,
			"processed", r.Pool.Processed,
			"failed", r.Pool.Failed)
	}
}
