package sales

import (
	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeSale = "Sale"

// Event type constants
const (
	EventTypeSaleRecorded = "SaleRecorded"
	EventTypeSaleDeleted  = "SaleDeleted"
)

// SaleRecordedEvent is published when a sale is created or updated
type SaleRecordedEvent struct {
	shared.BaseDomainEvent
	SaleID      uuid.UUID       `json:"sale_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Quantity    int             `json:"quantity"`
}

// NewSaleRecordedEvent creates a new SaleRecordedEvent
func NewSaleRecordedEvent(s *Sale) *SaleRecordedEvent {
	return &SaleRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleRecorded, AggregateTypeSale, s.ID, s.OrganizationID),
		SaleID:          s.ID,
		TotalAmount:     s.TotalAmount,
		Quantity:        s.TotalQuantity,
	}
}

// SaleDeletedEvent is published after a sale is deleted and its stock restored
type SaleDeletedEvent struct {
	shared.BaseDomainEvent
	SaleID uuid.UUID `json:"sale_id"`
}

// NewSaleDeletedEvent creates a new SaleDeletedEvent
func NewSaleDeletedEvent(s *Sale) *SaleDeletedEvent {
	return &SaleDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleDeleted, AggregateTypeSale, s.ID, s.OrganizationID),
		SaleID:          s.ID,
	}
}
