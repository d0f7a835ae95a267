package dynamoengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nisimpson/dynamoengine/internal/metrics"
	"github.com/rs/zerolog"
)

// Engine maps records and relations onto DynamoDB tables. The schema is compiled once
// by New and never changes afterwards; an Engine is safe for concurrent use.
type Engine struct {
	client   Client
	config   Config
	codec    Codec
	naming   Naming
	schema   Schema
	compiled *CompiledSchema
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// New compiles schema and returns an engine using client. Compilation errors are
// returned before any request is made.
func New(client Client, schema Schema, opts ...func(*Config)) (*Engine, error) {
	if client == nil {
		return nil, validationError("new", "client is required")
	}

	cfg := DefaultConfig()
	cfg.apply(opts)

	naming := Naming{Prefix: cfg.TablePrefix}
	schema = schema.Clone()

	compiled, err := Compile(schema, naming, cfg.Throughput)
	if err != nil {
		return nil, err
	}

	return &Engine{
		client:   client,
		config:   cfg,
		codec:    Codec{NullEmptyString: cfg.NullEmptyString},
		naming:   naming,
		schema:   schema,
		compiled: compiled,
		log:      cfg.Logger.With().Str("component", "dynamoengine").Logger(),
		metrics:  metrics.New(cfg.Registerer),
	}, nil
}

// Schema returns a copy of the engine's schema.
func (e *Engine) Schema() Schema { return e.schema.Clone() }

// Tables returns copies of every compiled table definition.
func (e *Engine) Tables() []TableDefinition { return e.compiled.Tables() }

// Naming returns the naming scheme used for tables and indexes.
func (e *Engine) Naming() Naming { return e.naming }

// Codec returns the attribute codec used for records.
func (e *Engine) Codec() Codec { return e.codec }

// TableName returns the physical table name of an entity type.
func (e *Engine) TableName(entityType string) (string, error) {
	def, err := e.entity("table name", entityType)
	if err != nil {
		return "", err
	}
	return def.TableName, nil
}

func (e *Engine) entity(op, entityType string) (TableDefinition, error) {
	if entityType == "" {
		return TableDefinition{}, validationError(op, "record type must be a non-empty string")
	}
	def, ok := e.compiled.Entities[entityType]
	if !ok {
		return TableDefinition{}, validationError(op, fmt.Sprintf("unknown record type %q", entityType))
	}
	return def, nil
}

// observe records metrics for an operation started at start.
func (e *Engine) observe(op string, start time.Time, err error) {
	e.metrics.ObserveOperation(op, start, err)
}

// retryThroughput calls fn until it succeeds or fails with anything other than
// ErrThroughputExceeded. The wait between attempts is fixed.
func (e *Engine) retryThroughput(ctx context.Context, op string, fn func() error) error {
	for {
		err := fn()
		if err == nil || !errors.Is(err, ErrThroughputExceeded) {
			return err
		}

		e.metrics.Retry(op)
		e.log.Warn().Str("operation", op).Err(err).Dur("delay", e.config.ThroughputRetryDelay).Msg("throughput exceeded; retrying")

		timer := time.NewTimer(e.config.ThroughputRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// NewID returns a random record id.
func NewID() string {
	return uuid.NewString()
}
