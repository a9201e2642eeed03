// Package main is the entrypoint for the sweeper binary.
//
// The sweeper runs the two maintenance loops under the pipeline:
//
//   - recovery: re-feeds pending entries whose enqueue was lost and failed
//     entries whose cool-down has elapsed back into the dispatch queue.
//   - cleanup: deletes event log entries older than the retention horizon
//     and purges expired dispatch lock rows.
//
// Both loops are interval-driven Runners sharing one process; a single
// sweeper instance per environment is sufficient and expected.
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
	"rooster/internal/notifications/core"
	"rooster/internal/ops"
	"rooster/internal/queue"
	"rooster/internal/scheduler"
	"rooster/internal/types"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
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

	logger.Info("sweeper starting",
		"environment", cfg.Environment,
		"recovery_interval", cfg.Scan.RecoveryInterval.String(),
		"recovery_cool_down", cfg.Scan.RecoveryCoolDown.String(),
		"cleanup_interval", cfg.Scan.CleanupInterval.String(),
		"retention_horizon", cfg.Scan.RetentionHorizon.String(),
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

	logRepo := db.NewEventLogRepository(pool)
	lockRepo := db.NewLockRepository(pool)
	publisher := queue.NewDispatchPublisher(sqsClient, cfg.AWS.DispatchQueue, typedLogger)

	recovery := scheduler.NewRecoveryService(
		logRepo,
		publisher,
		core.RetryPolicy{
			MaxAttempts: cfg.Dispatch.MaxAttempts,
			BaseDelay:   cfg.Dispatch.RetryBaseDelay,
		},
		cfg.Scan.RecoveryCoolDown,
		cfg.Scan.RecoveryBatch,
		nil,
		typedLogger,
	)
	cleanup := scheduler.NewCleanupService(logRepo, lockRepo, cfg.Scan.RetentionHorizon, nil, typedLogger)

	recoveryRunner := scheduler.NewRunner("recovery", cfg.Scan.RecoveryInterval, func(ctx context.Context) error {
		_, err := recovery.Sweep(ctx)
		return err
	}, typedLogger)
	cleanupRunner := scheduler.NewRunner("cleanup", cfg.Scan.CleanupInterval, func(ctx context.Context) error {
		_, err := cleanup.Purge(ctx)
		return err
	}, typedLogger)

	opsServer := ops.NewServer(cfg.Server.OpsPort, "sweeper", pool, logRepo, typedLogger)
	go opsServer.Start()

	recoveryRunner.Start(ctx)
	cleanupRunner.Start(ctx)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	recoveryRunner.Stop()
	cleanupRunner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops listener shutdown error", "error", err)
	}

	logger.Info("sweeper stopped cleanly")
	return nil
}

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
