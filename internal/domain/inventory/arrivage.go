package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ArrivageStatus is the receiving state of a shipment
type ArrivageStatus string

const (
	ArrivageStatusPending  ArrivageStatus = "PENDING"
	ArrivageStatusReceived ArrivageStatus = "RECEIVED"
)

// IsValid returns true if the status is known
func (s ArrivageStatus) IsValid() bool {
	return s == ArrivageStatusPending || s == ArrivageStatusReceived
}

// Arrivage is an inbound shipment grouping lots and expenses.
// ItemsCostEur, TotalCostEur and TotalCostDh are derived and only written by ApplyTotals.
type Arrivage struct {
	shared.OrgAggregateRoot
	Reference        string          `gorm:"type:varchar(100);not null"`
	Supplier         string          `gorm:"type:varchar(200)"`
	ExchangeRate     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	ShippingCostEur  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	PackagingCostEur decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ArrivalDate      time.Time       `gorm:"not null"`
	Status           ArrivageStatus  `gorm:"type:varchar(20);not null"`
	Notes            string          `gorm:"type:text"`
	ItemsCostEur     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalCostEur     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalCostDh      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	RecalculatedAt   *time.Time
}

// TableName returns the table name for GORM
func (Arrivage) TableName() string {
	return "arrivages"
}

// NewArrivage creates a pending arrivage with zero totals
func NewArrivage(orgID uuid.UUID, reference string, exchangeRate decimal.Decimal, arrivalDate time.Time) (*Arrivage, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, shared.NewValidationError("arrivage reference cannot be empty")
	}
	if len(reference) > 100 {
		return nil, shared.NewValidationError("arrivage reference cannot exceed 100 characters")
	}
	if !exchangeRate.IsPositive() {
		return nil, shared.NewValidationError("exchange rate must be positive")
	}
	if arrivalDate.IsZero() {
		arrivalDate = time.Now()
	}
	return &Arrivage{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		Reference:        reference,
		ExchangeRate:     exchangeRate,
		ShippingCostEur:  decimal.Zero,
		PackagingCostEur: decimal.Zero,
		ArrivalDate:      arrivalDate,
		Status:           ArrivageStatusPending,
		ItemsCostEur:     decimal.Zero,
		TotalCostEur:     decimal.Zero,
		TotalCostDh:      decimal.Zero,
	}, nil
}

// SetFixedCosts sets the shipping and packaging charges in EUR
func (a *Arrivage) SetFixedCosts(shippingEur, packagingEur decimal.Decimal) error {
	if shippingEur.IsNegative() || packagingEur.IsNegative() {
		return shared.NewValidationError("fixed costs cannot be negative")
	}
	a.ShippingCostEur = shippingEur.Round(2)
	a.PackagingCostEur = packagingEur.Round(2)
	a.UpdatedAt = time.Now()
	return nil
}

// SetExchangeRate changes the EUR to DH rate
func (a *Arrivage) SetExchangeRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return shared.NewValidationError("exchange rate must be positive")
	}
	a.ExchangeRate = rate
	a.UpdatedAt = time.Now()
	return nil
}

// Describe updates the descriptive fields
func (a *Arrivage) Describe(reference, supplier, notes string, arrivalDate time.Time) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return shared.NewValidationError("arrivage reference cannot be empty")
	}
	a.Reference = reference
	a.Supplier = strings.TrimSpace(supplier)
	a.Notes = notes
	if !arrivalDate.IsZero() {
		a.ArrivalDate = arrivalDate
	}
	a.UpdatedAt = time.Now()
	return nil
}

// SetStatus moves the arrivage between PENDING and RECEIVED
func (a *Arrivage) SetStatus(status ArrivageStatus) error {
	if !status.IsValid() {
		return shared.NewValidationError("invalid arrivage status %q", status)
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

// ApplyTotals stores a recomputed cost breakdown
func (a *Arrivage) ApplyTotals(t CostTotals) {
	now := time.Now()
	a.ItemsCostEur = t.ItemsCostEur
	a.TotalCostEur = t.TotalCostEur
	a.TotalCostDh = t.TotalCostDh
	a.RecalculatedAt = &now
	a.UpdatedAt = now
	a.AddDomainEvent(NewArrivageRecalculatedEvent(a))
}
