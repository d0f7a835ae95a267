// Package metrics provides Prometheus metrics for the engine.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	OperationsTotal     *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	RetriesTotal        *prometheus.CounterVec
	MigrationPollsTotal *prometheus.CounterVec
	TablesMigrated      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Collectors already registered
// by another engine are shared. A nil reg creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		OperationsTotal: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamoengine_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"operation", "status"},
		)),
		OperationDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dynamoengine_operation_duration_seconds",
				Help:    "Duration of store operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		)),
		RetriesTotal: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamoengine_throughput_retries_total",
				Help: "Total number of retries after throughput was exceeded",
			},
			[]string{"operation"},
		)),
		MigrationPollsTotal: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamoengine_migration_polls_total",
				Help: "Total number of table status polls while migrating",
			},
			[]string{"table"},
		)),
		TablesMigrated: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dynamoengine_tables_migrated_total",
				Help: "Total number of tables reconciled, by action",
			},
			[]string{"action"},
		)),
	}
}

// register registers c with reg and returns it, or the equal collector registered before.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveOperation records the outcome and duration of an operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Retry records a throughput retry.
func (m *Metrics) Retry(operation string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(operation).Inc()
}

// Poll records a status poll of table.
func (m *Metrics) Poll(table string) {
	if m == nil {
		return
	}
	m.MigrationPollsTotal.WithLabelValues(table).Inc()
}

// Migrated records a table reconciliation. action is one of create, race, update or
// none; race counts creates that found the table already made by another caller.
func (m *Metrics) Migrated(action string) {
	if m == nil {
		return
	}
	m.TablesMigrated.WithLabelValues(action).Inc()
}
