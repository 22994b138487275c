package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress  string
	DatabaseURI string
	LogLevel    string

	GatewayURL           string
	GatewayKeyID         string
	GatewayKeySecret     string
	GatewayWebhookSecret string
	PaymentTokenSecret   string
	PaymentTokenTTL      time.Duration
	WebhookAsync         bool
	MinOrderTotal        int64

	MessagingURL         string
	MessagingPhoneID     string
	MessagingToken       string
	MessagingVerifyToken string
	MessagingRPS         float64

	IdentityURL    string
	IdentityAPIKey string

	OrderWebhookToken string
	ChangeFeedChannel string

	SweepInterval       time.Duration
	SweepBatchSize      int
	WorkerPoolSize      int
	MessageFreshness    time.Duration
	FinalizeTimeout     time.Duration
	FinalizeRetryDelays []time.Duration
	ShutdownTimeout     time.Duration
}

const (
	defaultRunAddress        = ":8080"
	defaultLogLevel          = "info"
	defaultGatewayURL        = "https://api.razorpay.com/v1"
	defaultMessagingURL      = "https://graph.facebook.com/v18.0"
	defaultPaymentTokenTTL   = 15 * time.Minute
	defaultMinOrderTotal     = 4900
	defaultMessagingRPS      = 10
	defaultChangeFeedChannel = "order_placed"
	defaultSweepInterval     = time.Minute
	defaultSweepBatchSize    = 20
	defaultWorkerPoolSize    = 4
	defaultMessageFreshness  = 5 * time.Minute
	defaultFinalizeTimeout   = 3 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
)

var defaultFinalizeRetryDelays = []time.Duration{0, 10 * time.Second, 15 * time.Second}

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

// LoadEnv reads configuration from environment variables only, for tools that own their command line.
func LoadEnv() (*Config, error) {
	return load(nil, os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:           getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:          getString(lookup, "DATABASE_URI", ""),
		LogLevel:             getString(lookup, "LOG_LEVEL", defaultLogLevel),
		GatewayURL:           getString(lookup, "GATEWAY_URL", defaultGatewayURL),
		GatewayKeyID:         getString(lookup, "GATEWAY_KEY_ID", ""),
		GatewayKeySecret:     getString(lookup, "GATEWAY_KEY_SECRET", ""),
		GatewayWebhookSecret: getString(lookup, "GATEWAY_WEBHOOK_SECRET", ""),
		PaymentTokenSecret:   getString(lookup, "PAYMENT_TOKEN_SECRET", ""),
		PaymentTokenTTL:      getDuration(lookup, "PAYMENT_TOKEN_TTL", defaultPaymentTokenTTL),
		WebhookAsync:         getBool(lookup, "WEBHOOK_ASYNC", false),
		MinOrderTotal:        int64(getInt(lookup, "MIN_ORDER_TOTAL", defaultMinOrderTotal)),
		MessagingURL:         getString(lookup, "MESSAGING_URL", defaultMessagingURL),
		MessagingPhoneID:     getString(lookup, "MESSAGING_PHONE_ID", ""),
		MessagingToken:       getString(lookup, "MESSAGING_TOKEN", ""),
		MessagingVerifyToken: getString(lookup, "MESSAGING_VERIFY_TOKEN", ""),
		MessagingRPS:         getFloat(lookup, "MESSAGING_RPS", defaultMessagingRPS),
		IdentityURL:          getString(lookup, "IDENTITY_URL", ""),
		IdentityAPIKey:       getString(lookup, "IDENTITY_API_KEY", ""),
		OrderWebhookToken:    getString(lookup, "ORDER_WEBHOOK_TOKEN", ""),
		ChangeFeedChannel:    getString(lookup, "CHANGE_FEED_CHANNEL", defaultChangeFeedChannel),
		SweepInterval:        getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		SweepBatchSize:       getInt(lookup, "SWEEP_BATCH", defaultSweepBatchSize),
		WorkerPoolSize:       getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		MessageFreshness:     getDuration(lookup, "MESSAGE_FRESHNESS", defaultMessageFreshness),
		FinalizeTimeout:      getDuration(lookup, "FINALIZE_TIMEOUT", defaultFinalizeTimeout),
		ShutdownTimeout:      getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("orderhub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		sweepIntervalStr   = cfg.SweepInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		retryDelaysStr     = getString(lookup, "FINALIZE_RETRY_DELAYS", formatDurations(defaultFinalizeRetryDelays))
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.GatewayURL, "gateway-url", cfg.GatewayURL, "Payment gateway base URL")
	fs.StringVar(&cfg.MessagingURL, "messaging-url", cfg.MessagingURL, "Messaging API base URL")
	fs.StringVar(&cfg.IdentityURL, "identity-url", cfg.IdentityURL, "Identity service base URL")
	fs.BoolVar(&cfg.WebhookAsync, "webhook-async", cfg.WebhookAsync, "Acknowledge gateway webhooks before processing")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent sweep workers")
	fs.IntVar(&cfg.SweepBatchSize, "sweep-batch", cfg.SweepBatchSize, "Maximum orders per sweep")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between placement sweeps")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&retryDelaysStr, "finalize-retry-delays", retryDelaysStr, "Comma separated ledger retry delays")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.SweepInterval, err = time.ParseDuration(sweepIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.FinalizeRetryDelays, err = parseDurations(retryDelaysStr); err != nil {
		return nil, fmt.Errorf("invalid finalize retry delays: %w", err)
	}

	if secretFile, ok := lookup("GATEWAY_KEY_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read gateway secret file: %w", err)
		}
		cfg.GatewayKeySecret = strings.TrimSpace(string(content))
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaultSweepBatchSize
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = defaultFinalizeTimeout
	}

	if cfg.MessageFreshness <= 0 {
		cfg.MessageFreshness = defaultMessageFreshness
	}

	if cfg.PaymentTokenTTL <= 0 {
		cfg.PaymentTokenTTL = defaultPaymentTokenTTL
	}

	if cfg.MessagingRPS <= 0 {
		cfg.MessagingRPS = defaultMessagingRPS
	}

	if len(cfg.FinalizeRetryDelays) == 0 {
		cfg.FinalizeRetryDelays = append([]time.Duration(nil), defaultFinalizeRetryDelays...)
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.GatewayWebhookSecret == "" {
		return nil, fmt.Errorf("gateway webhook secret must be provided")
	}

	if cfg.GatewayKeySecret == "" {
		return nil, fmt.Errorf("gateway key secret must be provided")
	}

	if cfg.PaymentTokenSecret == "" {
		return nil, fmt.Errorf("payment token secret must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(lookup envLookup, key string, def float64) float64 {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseDurations(raw string) ([]time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	delays := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, fmt.Errorf("negative delay %s", d)
		}
		delays = append(delays, d)
	}
	return delays, nil
}

func formatDurations(delays []time.Duration) string {
	parts := make([]string, len(delays))
	for i, d := range delays {
		parts[i] = d.String()
	}
	return strings.Join(parts, ",")
}
