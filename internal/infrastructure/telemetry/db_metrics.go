package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dbMetricsStartKey = "retail:metrics_start"

// DefaultSlowQueryThreshold marks queries counted by db_slow_query_total
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// DBMetrics records query counts and latency through GORM callbacks and reports
// the connection pool state whenever the reader collects
type DBMetrics struct {
	queryTotal    metric.Int64Counter
	queryDuration metric.Float64Histogram
	slowQuery     metric.Int64Counter
	registration  metric.Registration
	slowThreshold time.Duration
}

// NewDBMetrics creates the instruments on meter and attaches them to db
func NewDBMetrics(db *gorm.DB, meter metric.Meter, slowThreshold time.Duration) (*DBMetrics, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db metrics: %w", err)
	}
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowQueryThreshold
	}

	m := &DBMetrics{slowThreshold: slowThreshold}
	if m.queryTotal, err = meter.Int64Counter("db_query_total",
		metric.WithDescription("Database queries by operation"),
		metric.WithUnit("{query}"),
	); err != nil {
		return nil, err
	}
	if m.queryDuration, err = meter.Float64Histogram("db_query_duration_seconds",
		metric.WithDescription("Database query latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DBDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if m.slowQuery, err = meter.Int64Counter("db_slow_query_total",
		metric.WithDescription("Database queries slower than the threshold, by table"),
		metric.WithUnit("{query}"),
	); err != nil {
		return nil, err
	}
	if err := m.observePool(meter, sqlDB); err != nil {
		return nil, err
	}
	if err := m.registerCallbacks(db); err != nil {
		_ = m.registration.Unregister()
		return nil, err
	}
	return m, nil
}

// observePool reports sql.DB statistics as gauges on every collection
func (m *DBMetrics) observePool(meter metric.Meter, sqlDB *sql.DB) error {
	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}
	maxOpen, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for since start"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return err
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, connections, maxOpen, waits)
	return err
}

func (m *DBMetrics) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	fixed := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) { m.record(tx, op) }
	}
	detected := func(tx *gorm.DB) { m.record(tx, operationOf(tx.Statement.SQL.String())) }

	return errors.Join(
		cb.Create().Before("gorm:create").Register("retail:metrics_before_create", markStart),
		cb.Query().Before("gorm:query").Register("retail:metrics_before_query", markStart),
		cb.Update().Before("gorm:update").Register("retail:metrics_before_update", markStart),
		cb.Delete().Before("gorm:delete").Register("retail:metrics_before_delete", markStart),
		cb.Row().Before("gorm:row").Register("retail:metrics_before_row", markStart),
		cb.Raw().Before("gorm:raw").Register("retail:metrics_before_raw", markStart),
		cb.Create().After("gorm:create").Register("retail:metrics_after_create", fixed("INSERT")),
		cb.Query().After("gorm:query").Register("retail:metrics_after_query", fixed("SELECT")),
		cb.Update().After("gorm:update").Register("retail:metrics_after_update", fixed("UPDATE")),
		cb.Delete().After("gorm:delete").Register("retail:metrics_after_delete", fixed("DELETE")),
		cb.Row().After("gorm:row").Register("retail:metrics_after_row", detected),
		cb.Raw().After("gorm:raw").Register("retail:metrics_after_raw", detected),
	)
}

// Unregister stops the pool gauges. Query callbacks stay on the *gorm.DB.
func (m *DBMetrics) Unregister() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}

func markStart(tx *gorm.DB) {
	tx.InstanceSet(dbMetricsStartKey, time.Now())
}

func (m *DBMetrics) record(tx *gorm.DB, operation string) {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var elapsed time.Duration
	if v, ok := tx.InstanceGet(dbMetricsStartKey); ok {
		if start, ok := v.(time.Time); ok {
			elapsed = time.Since(start)
		}
	}

	op := metric.WithAttributes(AttrDBOperation.String(operation))
	m.queryTotal.Add(ctx, 1, op)
	m.queryDuration.Record(ctx, elapsed.Seconds(), op)
	if elapsed > m.slowThreshold {
		table := tx.Statement.Table
		if table == "" {
			table = "unknown"
		}
		m.slowQuery.Add(ctx, 1, metric.WithAttributes(AttrDBTable.String(table)))
	}
}

// operationOf classifies raw SQL by its leading keyword
func operationOf(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}

// RegisterDBMetrics attaches database metrics when the meter provider exports.
// It returns nil metrics otherwise.
func RegisterDBMetrics(db *gorm.DB, mp *MeterProvider, logger *zap.Logger) (*DBMetrics, error) {
	if !mp.IsEnabled() {
		return nil, nil
	}
	m, err := NewDBMetrics(db, mp.Meter("retail.db"), DefaultSlowQueryThreshold)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("Database metrics enabled", zap.String("dialect", db.Name()))
	}
	return m, nil
}
