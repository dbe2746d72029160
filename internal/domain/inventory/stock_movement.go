package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementSale       MovementType = "SALE"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementArrivage   MovementType = "ARRIVAGE"
	MovementReturn     MovementType = "RETURN"
)

// IsValid returns true if the movement type is known
func (t MovementType) IsValid() bool {
	switch t {
	case MovementSale, MovementAdjustment, MovementArrivage, MovementReturn:
		return true
	}
	return false
}

func (t MovementType) String() string {
	return string(t)
}

// AdjustmentReason explains a manual stock adjustment
type AdjustmentReason string

const (
	ReasonCorrection     AdjustmentReason = "CORRECTION"
	ReasonDamage         AdjustmentReason = "DAMAGE"
	ReasonLoss           AdjustmentReason = "LOSS"
	ReasonFound          AdjustmentReason = "FOUND"
	ReasonInventoryCount AdjustmentReason = "INVENTORY_COUNT"
	ReasonOther          AdjustmentReason = "OTHER"
)

// IsValid returns true if the reason is known
func (r AdjustmentReason) IsValid() bool {
	switch r {
	case ReasonCorrection, ReasonDamage, ReasonLoss, ReasonFound, ReasonInventoryCount, ReasonOther:
		return true
	}
	return false
}

// ResetReference is the reference written on every stock reset movement
const ResetReference = "Stock Reset"

// StockMovement is an append-only record of one change to a product's stock.
// Rows are never updated or deleted; NewQty always equals PreviousQty + Quantity.
type StockMovement struct {
	shared.BaseEntity
	OrganizationID uuid.UUID    `gorm:"type:uuid;not null;index:idx_stock_mv_org_time,priority:1"`
	ProductID      uuid.UUID    `gorm:"type:uuid;not null;index:idx_stock_mv_product"`
	Type           MovementType `gorm:"type:varchar(20);not null"`
	Quantity       int          `gorm:"not null"`
	PreviousQty    int          `gorm:"not null"`
	NewQty         int          `gorm:"not null"`
	Reason         string       `gorm:"type:varchar(40)"`
	Reference      string       `gorm:"type:varchar(100)"`
	Notes          string       `gorm:"type:text"`
	SourceID       *uuid.UUID   `gorm:"type:uuid;index"`
	UserID         *uuid.UUID   `gorm:"type:uuid"`
	OccurredAt     time.Time    `gorm:"not null;index:idx_stock_mv_org_time,priority:2"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement records a change of stock from previous to next
func NewStockMovement(orgID, productID uuid.UUID, movementType MovementType, previous, next int) (*StockMovement, error) {
	if orgID == uuid.Nil {
		return nil, shared.NewValidationError("organization ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("product ID cannot be empty")
	}
	if !movementType.IsValid() {
		return nil, shared.NewValidationError("invalid movement type %q", movementType)
	}
	if next < 0 {
		return nil, shared.NewConsistencyError("movement for product %s would end at negative stock %d", productID, next)
	}

	now := time.Now()
	return &StockMovement{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: orgID,
		ProductID:      productID,
		Type:           movementType,
		Quantity:       next - previous,
		PreviousQty:    previous,
		NewQty:         next,
		OccurredAt:     now,
	}, nil
}

// WithReason sets the reason for the movement
func (m *StockMovement) WithReason(reason string) *StockMovement {
	m.Reason = reason
	return m
}

// WithReference sets the human readable reference
func (m *StockMovement) WithReference(reference string) *StockMovement {
	m.Reference = reference
	return m
}

// WithNotes sets free-form notes
func (m *StockMovement) WithNotes(notes string) *StockMovement {
	m.Notes = notes
	return m
}

// WithSource links the movement to the sale or arrivage that caused it
func (m *StockMovement) WithSource(id uuid.UUID) *StockMovement {
	m.SourceID = &id
	return m
}

// WithUser records the acting user
func (m *StockMovement) WithUser(userID uuid.UUID) *StockMovement {
	if userID != uuid.Nil {
		m.UserID = &userID
	}
	return m
}

// IsBalanced reports whether NewQty == PreviousQty + Quantity
func (m *StockMovement) IsBalanced() bool {
	return m.NewQty == m.PreviousQty+m.Quantity
}
