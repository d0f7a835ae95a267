package dynamoengine

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvTablePrefix = "TABLE_PREFIX"
	EnvEndpoint    = "DYNAMODB_ENDPOINT"
)

// Config contains engine configuration.
type Config struct {
	TablePrefix          string                // Prefix applied to every table and index name
	Throughput           Throughput            // Capacity used when a schema declares none. Default is 10 read, 5 write.
	CreatePollInterval   time.Duration         // Backoff base while a table is being created
	UpdatePollInterval   time.Duration         // Backoff base while indexes are being added
	MaxPollInterval      time.Duration         // Upper bound of a single poll wait
	MigrationTimeout     time.Duration         // Bounds MigrateUp when positive; zero waits until ctx is done
	ThroughputRetryDelay time.Duration         // Delay between retries of throttled get and delete calls
	NullEmptyString      bool                  // Encode empty strings as NULL instead of rejecting them
	Logger               zerolog.Logger        // Structured logger. Default discards everything.
	Registerer           prometheus.Registerer // Registers engine metrics when set
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		Throughput:           Throughput{Read: 10, Write: 5},
		CreatePollInterval:   50 * time.Millisecond,
		UpdatePollInterval:   500 * time.Millisecond,
		MaxPollInterval:      30 * time.Second,
		ThroughputRetryDelay: 100 * time.Millisecond,
		Logger:               zerolog.Nop(),
	}
}

func (c *Config) apply(opts []func(*Config)) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithTablePrefix sets the table name prefix.
func WithTablePrefix(prefix string) func(*Config) {
	return func(c *Config) { c.TablePrefix = prefix }
}

// WithThroughput sets the default provisioned throughput.
func WithThroughput(read, write int64) func(*Config) {
	return func(c *Config) { c.Throughput = Throughput{Read: read, Write: write} }
}

// WithPollIntervals sets the migration polling backoff.
func WithPollIntervals(create, update, max time.Duration) func(*Config) {
	return func(c *Config) {
		c.CreatePollInterval = create
		c.UpdatePollInterval = update
		c.MaxPollInterval = max
	}
}

// WithMigrationTimeout bounds the duration of MigrateUp and MigrateDown.
func WithMigrationTimeout(d time.Duration) func(*Config) {
	return func(c *Config) { c.MigrationTimeout = d }
}

// WithThroughputRetryDelay sets the delay between throttled get and delete retries.
func WithThroughputRetryDelay(d time.Duration) func(*Config) {
	return func(c *Config) { c.ThroughputRetryDelay = d }
}

// WithNullEmptyString encodes empty strings as NULL instead of rejecting them.
func WithNullEmptyString() func(*Config) {
	return func(c *Config) { c.NullEmptyString = true }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) func(*Config) {
	return func(c *Config) { c.Logger = l }
}

// WithRegisterer registers engine metrics with r.
func WithRegisterer(r prometheus.Registerer) func(*Config) {
	return func(c *Config) { c.Registerer = r }
}

// ConfigFromEnv returns options derived from the environment. Only TABLE_PREFIX is
// consulted; DYNAMODB_ENDPOINT is meant for NewClient.
func ConfigFromEnv() []func(*Config) {
	var opts []func(*Config)
	if prefix := os.Getenv(EnvTablePrefix); prefix != "" {
		opts = append(opts, WithTablePrefix(prefix))
	}
	return opts
}
