// Package config defines the global configuration structure for the Rooster
// pipeline. Configuration is loaded once at process initialization and is
// immutable thereafter, following 12-Factor principles: values come from the
// OS environment, optionally seeded by a .env file for local development.
//
// Any missing required value or invalid format causes the binary to exit
// immediately on startup (fail fast).
package config

import "time"

// Config is the top-level configuration struct shared by the scanner,
// dispatch-worker, and sweeper binaries. Sub-components receive only the
// specific subsets they require.
type Config struct {
	// System metadata.
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"rooster"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	Scan     ScanConfig
	Dispatch DispatchConfig
	Channels ChannelConfig
}

// ServerConfig holds the ops listener settings (health and stats endpoints).
type ServerConfig struct {
	OpsPort string `envconfig:"OPS_PORT" default:"8080"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region        string `envconfig:"AWS_REGION" default:"us-east-1"`
	DispatchQueue string `envconfig:"SQS_DISPATCH_QUEUE" validate:"required,url"`

	// MetricNamespace for CloudWatch delivery metrics. Empty disables
	// metric emission (a no-op recorder is substituted).
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Rooster"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ScanConfig drives the scan scheduler and the recovery/cleanup sweepers.
type ScanConfig struct {
	// TargetLocalHour is the local wall-clock hour at which a timezone
	// becomes due for scanning.
	TargetLocalHour int           `envconfig:"SCAN_TARGET_LOCAL_HOUR" default:"9" validate:"min=0,max=23"`
	Interval        time.Duration `envconfig:"SCAN_INTERVAL" default:"1h"`

	// SupportedTimezones is the candidate zone set for the resolver.
	// When empty, the scanner falls back to the distinct timezones
	// currently present in the user table.
	SupportedTimezones []string `envconfig:"SUPPORTED_TIMEZONES" default:"UTC,America/New_York,Europe/London,Asia/Tokyo,Australia/Sydney"`

	RecoveryInterval time.Duration `envconfig:"RECOVERY_INTERVAL" default:"30m"`
	RecoveryCoolDown time.Duration `envconfig:"RECOVERY_COOL_DOWN" default:"5m"`
	RecoveryBatch    int           `envconfig:"RECOVERY_BATCH" default:"50"`

	CleanupInterval  time.Duration `envconfig:"CLEANUP_INTERVAL" default:"24h"`
	RetentionHorizon time.Duration `envconfig:"RETENTION_HORIZON" default:"8760h"` // one year
}

// DispatchConfig drives the dispatch worker pool and the retry policy.
type DispatchConfig struct {
	Workers int `envconfig:"DISPATCH_WORKERS" default:"4" validate:"min=1"`

	MaxAttempts    int           `envconfig:"DISPATCH_MAX_ATTEMPTS" default:"3" validate:"min=1"`
	RetryBaseDelay time.Duration `envconfig:"DISPATCH_RETRY_BASE_DELAY" default:"60s"`
	LockTTL        time.Duration `envconfig:"DISPATCH_LOCK_TTL" default:"30s"`

	// WaitTime is the SQS long-poll duration; BatchSize the max messages
	// fetched per receive.
	WaitTime  time.Duration `envconfig:"DISPATCH_WAIT_TIME" default:"20s"`
	BatchSize int           `envconfig:"DISPATCH_BATCH_SIZE" default:"10" validate:"min=1,max=10"`
}

// ChannelConfig holds delivery channel settings.
type ChannelConfig struct {
	// Default selects the channel used when an entry does not specify one.
	Default string `envconfig:"NOTIFY_DEFAULT_CHANNEL" default:"webhook" validate:"oneof=webhook email"`

	// WebhookURL is the global webhook destination. Users may carry a
	// per-user override; when both are empty the webhook channel reports
	// a deterministic configuration-skip failure.
	WebhookURL     string        `envconfig:"WEBHOOK_URL"`
	WebhookTimeout time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	UserAgent      string        `envconfig:"WEBHOOK_USER_AGENT" default:"Rooster-Notifier/1.0"`

	// Email provider endpoint and sender identity. Empty endpoint makes
	// the email channel report configuration-skip.
	EmailEndpoint string `envconfig:"EMAIL_PROVIDER_ENDPOINT"`
	EmailAPIKey   string `envconfig:"EMAIL_PROVIDER_API_KEY"`
	EmailFrom     string `envconfig:"EMAIL_FROM_ADDRESS" default:"reminders@rooster.dev"`
}
