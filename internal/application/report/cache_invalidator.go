package report

import (
	"context"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/finance"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/sales"
	"github.com/retail/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CacheInvalidator drops an organization's cached dashboards whenever
// a figure they are built from changes
type CacheInvalidator struct {
	cache  DashboardCache
	logger *zap.Logger
}

// NewCacheInvalidator creates a new CacheInvalidator
func NewCacheInvalidator(cache DashboardCache, logger *zap.Logger) *CacheInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheInvalidator{cache: cache, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *CacheInvalidator) EventTypes() []string {
	return []string{
		sales.EventTypeSaleRecorded,
		sales.EventTypeSaleDeleted,
		inventory.EventTypeStockAdjusted,
		inventory.EventTypeArrivageRecalculated,
		finance.EventTypeExpenseChanged,
		catalog.EventTypeProductCreated,
		catalog.EventTypeProductStatusChanged,
		catalog.EventTypeProductUpdated,
	}
}

// Handle invalidates the cache of the event's organization
func (h *CacheInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	if err := h.cache.Invalidate(ctx, event.OrganizationID()); err != nil {
		h.logger.Warn("failed to invalidate dashboard cache",
			zap.String("organization_id", event.OrganizationID().String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		return err
	}
	h.logger.Debug("dashboard cache invalidated",
		zap.String("organization_id", event.OrganizationID().String()),
		zap.String("event_type", event.EventType()),
	)
	return nil
}

var _ shared.EventHandler = (*CacheInvalidator)(nil)
