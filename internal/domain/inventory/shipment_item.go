package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ShipmentItem is a lot: units of one product received in one arrivage at one unit cost.
// QuantityRemaining is always Quantity - QuantitySold and never negative.
type ShipmentItem struct {
	shared.BaseEntity
	OrganizationID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	ArrivageID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID           `gorm:"type:uuid;not null;index:idx_shipment_item_product_fifo,priority:1"`
	Quantity          int                 `gorm:"not null"`
	QuantitySold      int                 `gorm:"not null;default:0"`
	QuantityRemaining int                 `gorm:"not null"`
	CostPerUnitEur    decimal.NullDecimal `gorm:"type:decimal(18,2)"`
}

// TableName returns the table name for GORM
func (ShipmentItem) TableName() string {
	return "shipment_items"
}

// NewShipmentItem creates a lot. A nil cost means the lot is valued at the
// product's purchase price.
func NewShipmentItem(orgID, arrivageID, productID uuid.UUID, quantity int, costPerUnitEur *decimal.Decimal) (*ShipmentItem, error) {
	if arrivageID == uuid.Nil || productID == uuid.Nil {
		return nil, shared.NewValidationError("arrivage and product are required")
	}
	if quantity <= 0 {
		return nil, shared.NewValidationError("lot quantity must be positive")
	}
	item := &ShipmentItem{
		BaseEntity:        shared.NewBaseEntity(),
		OrganizationID:    orgID,
		ArrivageID:        arrivageID,
		ProductID:         productID,
		Quantity:          quantity,
		QuantityRemaining: quantity,
	}
	if err := item.SetCost(costPerUnitEur); err != nil {
		return nil, err
	}
	return item, nil
}

// SetCost changes the unit cost in EUR; nil clears it
func (i *ShipmentItem) SetCost(costPerUnitEur *decimal.Decimal) error {
	if costPerUnitEur == nil {
		i.CostPerUnitEur = decimal.NullDecimal{}
		return nil
	}
	if costPerUnitEur.IsNegative() {
		return shared.NewValidationError("unit cost cannot be negative")
	}
	i.CostPerUnitEur = decimal.NewNullDecimal(costPerUnitEur.Round(2))
	i.UpdatedAt = time.Now()
	return nil
}

// Resize changes the received quantity of the lot and returns the delta.
// A lot cannot shrink below what has already been sold from it.
func (i *ShipmentItem) Resize(quantity int) (int, error) {
	if quantity <= 0 {
		return 0, shared.NewValidationError("lot quantity must be positive")
	}
	if quantity < i.QuantitySold {
		return 0, shared.NewValidationError("lot quantity %d is below the %d units already sold", quantity, i.QuantitySold)
	}
	delta := quantity - i.Quantity
	i.Quantity = quantity
	i.QuantityRemaining = quantity - i.QuantitySold
	i.UpdatedAt = time.Now()
	return delta, nil
}

// MoveTo reassigns the lot to another arrivage
func (i *ShipmentItem) MoveTo(arrivageID uuid.UUID) {
	i.ArrivageID = arrivageID
	i.UpdatedAt = time.Now()
}

// Take draws n units from the lot
func (i *ShipmentItem) Take(n int) error {
	if n <= 0 || n > i.QuantityRemaining {
		return shared.NewConsistencyError("cannot take %d units from lot %s with %d remaining", n, i.ID, i.QuantityRemaining)
	}
	i.QuantitySold += n
	i.QuantityRemaining -= n
	i.UpdatedAt = time.Now()
	return nil
}

// Release returns n previously taken units to the lot
func (i *ShipmentItem) Release(n int) error {
	if n <= 0 || n > i.QuantitySold {
		return shared.NewConsistencyError("cannot release %d units to lot %s with %d sold", n, i.ID, i.QuantitySold)
	}
	i.QuantitySold -= n
	i.QuantityRemaining += n
	i.UpdatedAt = time.Now()
	return nil
}

// CanDelete reports whether nothing has been sold from the lot
func (i *ShipmentItem) CanDelete() bool {
	return i.QuantitySold == 0
}

// CheckInvariant verifies the lot counters
func (i *ShipmentItem) CheckInvariant() error {
	if i.QuantitySold < 0 || i.QuantityRemaining < 0 || i.QuantityRemaining != i.Quantity-i.QuantitySold {
		return shared.NewConsistencyError("lot %s counters drifted: quantity=%d sold=%d remaining=%d",
			i.ID, i.Quantity, i.QuantitySold, i.QuantityRemaining)
	}
	return nil
}

// UnitCostEur returns the lot cost or fallback when the lot has none
func (i *ShipmentItem) UnitCostEur(fallback decimal.Decimal) decimal.Decimal {
	if i.CostPerUnitEur.Valid {
		return i.CostPerUnitEur.Decimal
	}
	return fallback
}

// CostPerUnitDh converts the EUR unit cost at rate
func (i *ShipmentItem) CostPerUnitDh(fallbackEur, rate decimal.Decimal) decimal.Decimal {
	return i.UnitCostEur(fallbackEur).Mul(rate).Round(2)
}
