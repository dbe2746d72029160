package sales

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SaleKind distinguishes single-product sales from bundles
type SaleKind string

const (
	SaleKindSingle SaleKind = "SINGLE"
	SaleKindBundle SaleKind = "BUNDLE"
)

// IsValid returns true if the kind is known
func (k SaleKind) IsValid() bool {
	return k == SaleKindSingle || k == SaleKindBundle
}

// Line is a requested sale line before it is priced and allocated
type Line struct {
	ProductID    uuid.UUID
	Quantity     int
	PricePerUnit decimal.Decimal
}

// Sale records a completed transaction. TotalAmount is always derived from the items.
type Sale struct {
	shared.OrgAggregateRoot
	Kind          SaleKind         `gorm:"type:varchar(10);not null"`
	SaleDate      time.Time        `gorm:"not null;index"`
	IsPromo       bool             `gorm:"not null"`
	Notes         string           `gorm:"type:text"`
	TotalQuantity int              `gorm:"not null"`
	TotalAmount   decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	CostOfGoodsDh decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	Items         []SaleItem       `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Allocations   []SaleAllocation `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// SaleItem is one product line of a sale
type SaleItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName  string          `gorm:"type:varchar(200);not null"`
	Quantity     int             `gorm:"not null"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (SaleItem) TableName() string {
	return "sale_items"
}

// SaleAllocation records how many units of a sale line came from which lot and at
// what cost. ShipmentItemID is nil when the units came from stock without lots.
type SaleAllocation struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null"`
	ShipmentItemID *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity       int             `gorm:"not null"`
	UnitCostEur    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	UnitCostDh     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (SaleAllocation) TableName() string {
	return "sale_allocations"
}

// NewSale validates the lines and prices them. A single sale carries exactly one line;
// a bundle carries at least one and names each product once.
func NewSale(orgID uuid.UUID, kind SaleKind, saleDate time.Time, lines []Line) (*Sale, error) {
	if !kind.IsValid() {
		return nil, shared.NewValidationError("invalid sale kind %q", kind)
	}
	if err := validateLines(kind, lines); err != nil {
		return nil, err
	}
	if saleDate.IsZero() {
		saleDate = time.Now()
	}

	s := &Sale{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		Kind:             kind,
		SaleDate:         saleDate,
		CostOfGoodsDh:    decimal.Zero,
	}
	s.setItems(lines)
	return s, nil
}

// Replace swaps the sale's lines for new ones; allocations must be rebuilt by the caller
func (s *Sale) Replace(lines []Line, saleDate time.Time) error {
	if err := validateLines(s.Kind, lines); err != nil {
		return err
	}
	if !saleDate.IsZero() {
		s.SaleDate = saleDate
	}
	s.setItems(lines)
	s.Allocations = nil
	s.CostOfGoodsDh = decimal.Zero
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

func (s *Sale) setItems(lines []Line) {
	s.Items = make([]SaleItem, 0, len(lines))
	total := decimal.Zero
	qty := 0
	for _, l := range lines {
		price := l.PricePerUnit.Round(2)
		lineTotal := price.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		s.Items = append(s.Items, SaleItem{
			ID:           uuid.New(),
			SaleID:       s.ID,
			ProductID:    l.ProductID,
			Quantity:     l.Quantity,
			PricePerUnit: price,
			LineTotal:    lineTotal,
		})
		total = total.Add(lineTotal)
		qty += l.Quantity
	}
	s.TotalAmount = total.Round(2)
	s.TotalQuantity = qty
}

// SetNotes sets the free-form notes
func (s *Sale) SetNotes(notes string) {
	s.Notes = strings.TrimSpace(notes)
}

// NameItem records the product name on the line for display after renames
func (s *Sale) NameItem(productID uuid.UUID, name string) {
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			s.Items[i].ProductName = name
		}
	}
}

// AddAllocation records units drawn for the sale and accumulates cost of goods
func (s *Sale) AddAllocation(productID uuid.UUID, lotID *uuid.UUID, qty int, unitCostEur, unitCostDh decimal.Decimal) {
	s.Allocations = append(s.Allocations, SaleAllocation{
		ID:             uuid.New(),
		SaleID:         s.ID,
		ProductID:      productID,
		ShipmentItemID: lotID,
		Quantity:       qty,
		UnitCostEur:    unitCostEur.Round(2),
		UnitCostDh:     unitCostDh.Round(2),
	})
	s.CostOfGoodsDh = s.CostOfGoodsDh.Add(unitCostDh.Round(2).Mul(decimal.NewFromInt(int64(qty)))).Round(2)
}

// AllocatedQuantity sums the units allocated to a product
func (s *Sale) AllocatedQuantity(productID uuid.UUID) int {
	n := 0
	for _, a := range s.Allocations {
		if a.ProductID == productID {
			n += a.Quantity
		}
	}
	return n
}

// QuantityByProduct sums requested units per product
func (s *Sale) QuantityByProduct() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(s.Items))
	for _, it := range s.Items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

// GrossProfitDh is revenue minus cost of goods
func (s *Sale) GrossProfitDh() decimal.Decimal {
	return s.TotalAmount.Sub(s.CostOfGoodsDh)
}

// MarkRecorded queues the SaleRecorded event
func (s *Sale) MarkRecorded() {
	s.AddDomainEvent(NewSaleRecordedEvent(s))
}

// MarkDeleted queues the SaleDeleted event
func (s *Sale) MarkDeleted() {
	s.AddDomainEvent(NewSaleDeletedEvent(s))
}

func validateLines(kind SaleKind, lines []Line) error {
	if len(lines) == 0 {
		return shared.NewValidationError("a sale needs at least one item")
	}
	if kind == SaleKindSingle && len(lines) != 1 {
		return shared.NewValidationError("a single sale has exactly one item")
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		if l.ProductID == uuid.Nil {
			return shared.NewValidationError("product ID cannot be empty")
		}
		if l.Quantity <= 0 {
			return shared.NewValidationError("quantity must be positive")
		}
		if l.PricePerUnit.IsNegative() {
			return shared.NewValidationError("price per unit cannot be negative")
		}
		if _, dup := seen[l.ProductID]; dup {
			return shared.NewValidationError("product %s appears more than once", l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
	}
	return nil
}
