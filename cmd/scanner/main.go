// Package main is the entrypoint for the scanner binary.
//
// The scanner is the producer side of the pipeline. On every tick it resolves
// which supported timezones are currently at the target local hour, loads
// each due zone's users, evaluates them against the trigger registry
// (birthday, work anniversary), records due occurrences idempotently in the
// event log, and enqueues a dispatch job for each occurrence it created.
//
// Startup sequence:
//  1. Load and validate configuration from the environment.
//  2. Initialize the structured logger.
//  3. Open the pgx connection pool and verify connectivity.
//  4. Build the SQS client and dispatch publisher.
//  5. Register triggers and assemble the ScanService.
//  6. Start the scan Runner and the ops HTTP listener.
//  7. Block until SIGINT/SIGTERM, then drain.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"rooster/internal/config"
	"rooster/internal/db"
	"rooster/internal/ops"
	"rooster/internal/queue"
	"rooster/internal/scheduler"
	"rooster/internal/triggers"
	"rooster/internal/types"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
// slog.Logger satisfies Info/Warn/Error directly but its With returns
// *slog.Logger, not types.Logger, so an adapter is necessary.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	typedLogger := &slogAdapter{logger: logger}

	logger.Info("scanner starting",
		"environment", cfg.Environment,
		"target_local_hour", cfg.Scan.TargetLocalHour,
		"scan_interval", cfg.Scan.Interval.String(),
		"supported_timezones", cfg.Scan.SupportedTimezones,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS SDK config: %w", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})

	userRepo := db.NewUserRepository(pool)
	logRepo := db.NewEventLogRepository(pool)
	publisher := queue.NewDispatchPublisher(sqsClient, cfg.AWS.DispatchQueue, typedLogger)

	registry := triggers.NewRegistry()
	registry.MustRegister(triggers.NewBirthdayTrigger())
	registry.MustRegister(triggers.NewAnniversaryTrigger())

	scanner := scheduler.NewScanService(
		userRepo,
		logRepo,
		publisher,
		registry,
		cfg.Scan.TargetLocalHour,
		cfg.Scan.SupportedTimezones,
		nil,
		typedLogger,
	)

	runner := scheduler.NewRunner("scan", cfg.Scan.Interval, func(ctx context.Context) error {
		_, err := scanner.ScanTick(ctx)
		return err
	}, typedLogger)

	opsServer := ops.NewServer(cfg.Server.OpsPort, "scanner", pool, logRepo, typedLogger)
	go opsServer.Start()

	runner.Start(ctx)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops listener shutdown error", "error", err)
	}

	logger.Info("scanner stopped cleanly")
	return nil
}

// newPool opens the pgx connection pool with the configured tuning and
// verifies connectivity before any scheduler starts.
func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// newLogger creates a structured slog.Logger for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
