package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold is used when a product is created without one
const DefaultLowStockThreshold = 5

// Product is a sellable item with running stock counters.
// CurrentStock is always derived from QuantityReceived and QuantitySold.
type Product struct {
	shared.OrgAggregateRoot
	Name              string              `gorm:"type:varchar(200);not null"`
	SKU               string              `gorm:"column:sku;type:varchar(64);index"`
	Description       string              `gorm:"type:text"`
	BrandID           *uuid.UUID          `gorm:"type:uuid;index"`
	CategoryID        *uuid.UUID          `gorm:"type:uuid;index"`
	ArrivageID        *uuid.UUID          `gorm:"type:uuid;index"`
	PurchasePriceMad  decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	PurchasePriceEur  decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	SellingPriceDh    decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	QuantityReceived  int                 `gorm:"not null;default:0"`
	QuantitySold      int                 `gorm:"not null;default:0"`
	LowStockThreshold int                 `gorm:"not null"`
	Active            bool                `gorm:"column:is_active;not null"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates an active product with zero stock
func NewProduct(orgID uuid.UUID, name string, purchasePriceMad, sellingPriceDh decimal.Decimal) (*Product, error) {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validatePrices(purchasePriceMad, sellingPriceDh); err != nil {
		return nil, err
	}

	p := &Product{
		OrgAggregateRoot:  shared.NewOrgAggregateRoot(orgID),
		Name:              name,
		PurchasePriceMad:  purchasePriceMad.Round(2),
		SellingPriceDh:    sellingPriceDh.Round(2),
		LowStockThreshold: DefaultLowStockThreshold,
		Active:            true,
	}
	p.AddDomainEvent(NewProductCreatedEvent(p))
	return p, nil
}

// Update changes descriptive fields
func (p *Product) Update(name, sku, description string) error {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return err
	}
	if len(sku) > 64 {
		return shared.NewValidationError("SKU cannot exceed 64 characters")
	}
	p.Name = name
	p.SKU = strings.TrimSpace(sku)
	p.Description = description
	p.touch()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// SetPrices sets the purchase and selling prices. When purchaseEur is nil the EUR
// price is derived from the MAD price and rate; with a non-positive rate it stays unset.
func (p *Product) SetPrices(purchaseMad decimal.Decimal, purchaseEur *decimal.Decimal, sellingDh, rate decimal.Decimal) error {
	if err := validatePrices(purchaseMad, sellingDh); err != nil {
		return err
	}
	p.PurchasePriceMad = purchaseMad.Round(2)
	p.SellingPriceDh = sellingDh.Round(2)

	switch {
	case purchaseEur != nil:
		if purchaseEur.IsNegative() {
			return shared.NewValidationError("purchase price EUR cannot be negative")
		}
		p.PurchasePriceEur = decimal.NewNullDecimal(purchaseEur.Round(2))
	case rate.IsPositive():
		p.PurchasePriceEur = decimal.NewNullDecimal(p.PurchasePriceMad.Div(rate).Round(2))
	default:
		p.PurchasePriceEur = decimal.NullDecimal{}
	}
	p.touch()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// Classify assigns brand and category (nil clears)
func (p *Product) Classify(brandID, categoryID *uuid.UUID) {
	p.BrandID = brandID
	p.CategoryID = categoryID
	p.touch()
}

// AttachToArrivage records the arrivage the product first came in with
func (p *Product) AttachToArrivage(arrivageID uuid.UUID) {
	if p.ArrivageID == nil {
		p.ArrivageID = &arrivageID
		p.touch()
	}
}

// DetachFromArrivage clears the arrivage link when it points at arrivageID
func (p *Product) DetachFromArrivage(arrivageID uuid.UUID) {
	if p.ArrivageID != nil && *p.ArrivageID == arrivageID {
		p.ArrivageID = nil
		p.touch()
	}
}

// SetLowStockThreshold sets the alert level
func (p *Product) SetLowStockThreshold(threshold int) error {
	if threshold < 0 {
		return shared.NewValidationError("low stock threshold cannot be negative")
	}
	p.LowStockThreshold = threshold
	p.touch()
	return nil
}

// CurrentStock returns max(0, received - sold)
func (p *Product) CurrentStock() int {
	if stock := p.QuantityReceived - p.QuantitySold; stock > 0 {
		return stock
	}
	return 0
}

// IsLowStock reports whether the product is active and at or below its threshold
func (p *Product) IsLowStock() bool {
	return p.Active && p.CurrentStock() <= p.LowStockThreshold
}

// Receive adds (or with a negative delta removes) received units. Removing units
// below what has already been sold fails.
func (p *Product) Receive(delta int) error {
	if p.QuantityReceived+delta < p.QuantitySold {
		return shared.NewValidationError("cannot reduce received quantity of %s below sold quantity %d", p.Name, p.QuantitySold)
	}
	p.QuantityReceived += delta
	p.touch()
	return nil
}

// RecordSale moves qty units from stock to sold
func (p *Product) RecordSale(qty int) error {
	if qty <= 0 {
		return shared.NewValidationError("sale quantity must be positive")
	}
	if available := p.CurrentStock(); qty > available {
		return shared.NewInsufficientStockError(p.Name, available, qty)
	}
	p.QuantitySold += qty
	p.touch()
	return nil
}

// ReverseSale returns qty previously sold units to stock
func (p *Product) ReverseSale(qty int) error {
	if qty <= 0 || qty > p.QuantitySold {
		return shared.NewConsistencyError("cannot return %d units of %s: only %d sold", qty, p.Name, p.QuantitySold)
	}
	p.QuantitySold -= qty
	p.touch()
	return nil
}

// Adjust applies a manual stock correction through QuantityReceived.
// It returns the stock before and after the change.
func (p *Product) Adjust(delta int) (previous, next int, err error) {
	if delta == 0 {
		return 0, 0, shared.NewValidationError("adjustment quantity must not be zero")
	}
	previous = p.QuantityReceived - p.QuantitySold
	next = previous + delta
	if next < 0 {
		return 0, 0, shared.NewValidationError("adjustment would leave %s with negative stock (%d)", p.Name, next)
	}
	p.QuantityReceived += delta
	p.touch()
	p.AddDomainEvent(NewProductStockChangedEvent(p, previous, next))
	return previous, next, nil
}

// Reset forces the counters so that current stock equals target. With resetSold the
// sold counter is zeroed and received becomes target; otherwise received = sold + target.
func (p *Product) Reset(target int, resetSold bool) (previous, next int, err error) {
	if target < 0 {
		return 0, 0, shared.NewValidationError("target stock cannot be negative")
	}
	previous = p.QuantityReceived - p.QuantitySold
	if resetSold {
		p.QuantitySold = 0
		p.QuantityReceived = target
	} else {
		p.QuantityReceived = p.QuantitySold + target
	}
	p.touch()
	p.AddDomainEvent(NewProductStockChangedEvent(p, previous, target))
	return previous, target, nil
}

// UnitCostEur returns the EUR purchase price, falling back to MAD / rate
func (p *Product) UnitCostEur(rate decimal.Decimal) decimal.Decimal {
	if p.PurchasePriceEur.Valid {
		return p.PurchasePriceEur.Decimal
	}
	if rate.IsPositive() {
		return p.PurchasePriceMad.Div(rate).Round(2)
	}
	return decimal.Zero
}

// Margin is the gross margin percentage of the selling price
func (p *Product) Margin() decimal.Decimal {
	return Margin(p.SellingPriceDh, p.PurchasePriceMad)
}

// NetMargin is the margin after the per-unit packaging cost
func (p *Product) NetMargin(packagingCost decimal.Decimal) decimal.Decimal {
	return NetMargin(p.SellingPriceDh, p.PurchasePriceMad, packagingCost)
}

// StockValue is current stock valued at purchase price
func (p *Product) StockValue() decimal.Decimal {
	return p.PurchasePriceMad.Mul(decimal.NewFromInt(int64(p.CurrentStock())))
}

// Activate re-enables a deactivated product
func (p *Product) Activate() error {
	if p.Active {
		return shared.NewDomainError(shared.CodeInvalidState, "product is already active")
	}
	p.Active = true
	p.touch()
	p.AddDomainEvent(NewProductStatusChangedEvent(p))
	return nil
}

// Deactivate soft-deletes the product; history is kept
func (p *Product) Deactivate() error {
	if !p.Active {
		return shared.NewDomainError(shared.CodeInvalidState, "product is already inactive")
	}
	p.Active = false
	p.touch()
	p.AddDomainEvent(NewProductStatusChangedEvent(p))
	return nil
}

// IsActive reports whether the product takes part in stock and margin aggregates
func (p *Product) IsActive() bool {
	return p.Active
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now()
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewValidationError("product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("product name cannot exceed 200 characters")
	}
	return nil
}

func validatePrices(purchase, selling decimal.Decimal) error {
	if purchase.IsNegative() {
		return shared.NewValidationError("purchase price cannot be negative")
	}
	if selling.IsNegative() {
		return shared.NewValidationError("selling price cannot be negative")
	}
	return nil
}
