package telemetry

import (
	"errors"
	"fmt"

	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterGormTracing installs the otelgorm plugin so every query becomes a child
// span of the request. Query variables are never recorded.
func RegisterGormTracing(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger) error {
	if !cfg.Enabled || !cfg.DBTraceEnabled {
		return nil
	}
	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(db.Name()),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}
	if err := registerTableAttributes(db); err != nil {
		return err
	}
	if logger != nil {
		logger.Info("Database tracing enabled", zap.String("dialect", db.Name()))
	}
	return nil
}

// registerTableAttributes tags query spans with the table and affected row count.
// The callbacks run before otelgorm ends the span.
func registerTableAttributes(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().After("gorm:create").Before("otel:after_create").Register("retail:span_table_create", tagSpan),
		cb.Query().After("gorm:query").Before("otel:after_query").Register("retail:span_table_query", tagSpan),
		cb.Update().After("gorm:update").Before("otel:after_update").Register("retail:span_table_update", tagSpan),
		cb.Delete().After("gorm:delete").Before("otel:after_delete").Register("retail:span_table_delete", tagSpan),
		cb.Row().After("gorm:row").Before("otel:after_row").Register("retail:span_table_row", tagSpan),
		cb.Raw().After("gorm:raw").Before("otel:after_raw").Register("retail:span_table_raw", tagSpan),
	)
}

func tagSpan(db *gorm.DB) {
	if db.Statement == nil || db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
}
