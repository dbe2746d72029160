package inventory

import (
	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeArrivage = "Arrivage"

// Event type constants
const (
	EventTypeArrivageRecalculated = "ArrivageRecalculated"
	EventTypeStockAdjusted        = "StockAdjusted"
)

// ArrivageRecalculatedEvent is published when an arrivage's totals are recomputed
type ArrivageRecalculatedEvent struct {
	shared.BaseDomainEvent
	ArrivageID   uuid.UUID       `json:"arrivage_id"`
	TotalCostEur decimal.Decimal `json:"total_cost_eur"`
	TotalCostDh  decimal.Decimal `json:"total_cost_dh"`
}

// NewArrivageRecalculatedEvent creates a new ArrivageRecalculatedEvent
func NewArrivageRecalculatedEvent(a *Arrivage) *ArrivageRecalculatedEvent {
	return &ArrivageRecalculatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeArrivageRecalculated, AggregateTypeArrivage, a.ID, a.OrganizationID),
		ArrivageID:      a.ID,
		TotalCostEur:    a.TotalCostEur,
		TotalCostDh:     a.TotalCostDh,
	}
}

// StockAdjustedEvent is published after a ledger adjustment or reset commits
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID    `json:"product_id"`
	Type      MovementType `json:"type"`
	Quantity  int          `json:"quantity"`
	NewQty    int          `json:"new_qty"`
}

// NewStockAdjustedEvent creates a StockAdjustedEvent from the movement written
func NewStockAdjustedEvent(m *StockMovement) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, "Product", m.ProductID, m.OrganizationID),
		ProductID:       m.ProductID,
		Type:            m.Type,
		Quantity:        m.Quantity,
		NewQty:          m.NewQty,
	}
}
