// Package main is the entrypoint for the dispatch worker binary.
//
// The dispatch worker is the consumer side of the pipeline. It long-polls the
// dispatch SQS queue and runs each message through the core dispatcher:
// entry-scoped lock, status guard, channel delivery, status settlement, and
// in-queue retry with exponential backoff.
//
// Startup sequence:
//  1. Load and validate configuration from the environment.
//  2. Initialize the structured logger.
//  3. Open the pgx connection pool and verify connectivity.
//  4. Build the SQS and CloudWatch clients.
//  5. Register delivery channels (webhook, email) and triggers.
//  6. Assemble the dispatcher and the bounded consumer pool.
//  7. Run the consumer until SIGINT/SIGTERM, then drain.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"rooster/internal/config"
	"rooster/internal/db"
	"rooster/internal/notifications/core"
	"rooster/internal/notifications/email"
	"rooster/internal/notifications/webhook"
	"rooster/internal/ops"
	"rooster/internal/queue"
	"rooster/internal/triggers"
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

	logger.Info("dispatch worker starting",
		"environment", cfg.Environment,
		"workers", cfg.Dispatch.Workers,
		"max_attempts", cfg.Dispatch.MaxAttempts,
		"default_channel", cfg.Channels.Default,
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

	var metrics core.DeliveryMetrics = core.NoopDeliveryMetrics{}
	if cfg.AWS.MetricNamespace != "" {
		cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		metrics = core.NewCloudWatchDeliveryMetrics(cwClient, cfg.AWS.MetricNamespace, typedLogger)
	}

	logRepo := db.NewEventLogRepository(pool)
	userRepo := db.NewUserRepository(pool)
	lockRepo := db.NewLockRepository(pool)
	publisher := queue.NewDispatchPublisher(sqsClient, cfg.AWS.DispatchQueue, typedLogger)

	channels := core.NewChannelRegistry(types.ChannelType(cfg.Channels.Default))
	channels.MustRegister(webhook.NewChannel(cfg.Channels, typedLogger))
	channels.MustRegister(email.NewChannelFromConfig(cfg.Channels, typedLogger))

	registry := triggers.NewRegistry()
	registry.MustRegister(triggers.NewBirthdayTrigger())
	registry.MustRegister(triggers.NewAnniversaryTrigger())

	dispatcher := core.NewDispatcher(core.DispatcherDeps{
		Store:    logRepo,
		Users:    userRepo,
		Lock:     lockRepo,
		Queue:    publisher,
		Channels: channels,
		Triggers: registry,
		Policy: core.RetryPolicy{
			MaxAttempts: cfg.Dispatch.MaxAttempts,
			BaseDelay:   cfg.Dispatch.RetryBaseDelay,
		},
		LockTTL: cfg.Dispatch.LockTTL,
		Metrics: metrics,
		Logger:  typedLogger,
	})

	consumer := queue.NewConsumer(sqsClient, cfg.AWS.DispatchQueue, dispatcher, queue.ConsumerOptions{
		Workers:   cfg.Dispatch.Workers,
		WaitTime:  cfg.Dispatch.WaitTime,
		BatchSize: cfg.Dispatch.BatchSize,
	}, typedLogger)

	opsServer := ops.NewServer(cfg.Server.OpsPort, "dispatch-worker", pool, logRepo, typedLogger)
	go opsServer.Start()

	// Blocks until the signal context is cancelled.
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer terminated", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops listener shutdown error", "error", err)
	}

	logger.Info("dispatch worker stopped cleanly")
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
