package catalog

import (
	"context"
	"fmt"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LowStockHandler handles ProductStockChangedEvent
// and raises an alert when a product falls to or below its threshold
type LowStockHandler struct {
	products catalog.ProductRepository
	logger   *zap.Logger
	notifier LowStockNotifier
}

// LowStockNotifier is the interface for delivering low stock alerts
type LowStockNotifier interface {
	// NotifyLowStock sends an alert for a product that crossed its threshold
	NotifyLowStock(ctx context.Context, alert LowStockAlert) error
}

// LowStockAlert describes a product whose stock crossed its threshold
type LowStockAlert struct {
	OrganizationID string `json:"organization_id"`
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	CurrentStock   int    `json:"current_stock"`
	Threshold      int    `json:"threshold"`
}

// NewLowStockHandler creates a new handler for stock change events
func NewLowStockHandler(products catalog.ProductRepository, logger *zap.Logger) *LowStockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockHandler{
		products: products,
		logger:   logger,
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *LowStockHandler) WithNotifier(notifier LowStockNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{catalog.EventTypeProductStockChanged}
}

// Handle processes a ProductStockChangedEvent. Only a move from above the threshold
// to at or below it raises an alert.
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*catalog.ProductStockChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", catalog.EventTypeProductStockChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			catalog.EventTypeProductStockChanged, event.EventType())
	}
	if changed.NewStock >= changed.PreviousStock {
		return nil
	}

	product, err := h.products.FindByID(ctx, event.OrganizationID(), changed.ProductID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !product.IsActive() || changed.PreviousStock <= product.LowStockThreshold || changed.NewStock > product.LowStockThreshold {
		return nil
	}

	h.logger.Warn("product stock is low",
		zap.String("organization_id", event.OrganizationID().String()),
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
		zap.Int("current_stock", changed.NewStock),
		zap.Int("threshold", product.LowStockThreshold),
	)

	if h.notifier != nil {
		alert := LowStockAlert{
			OrganizationID: event.OrganizationID().String(),
			ProductID:      product.ID.String(),
			Name:           product.Name,
			CurrentStock:   changed.NewStock,
			Threshold:      product.LowStockThreshold,
		}
		if err := h.notifier.NotifyLowStock(ctx, alert); err != nil {
			h.logger.Error("failed to send low stock alert",
				zap.String("product_id", product.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

var _ shared.EventHandler = (*LowStockHandler)(nil)
