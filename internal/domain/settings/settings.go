package settings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Default values for a new organization
var (
	DefaultPackagingCostDh     = decimal.NewFromFloat(8.00)
	DefaultExchangeRate        = decimal.NewFromFloat(10.80)
	DefaultLowStockThreshold   = 5
	DefaultAllocationPolicyKey = "oldestLotFirst"
)

// OrganizationSettings holds the tunables used by margin and currency computations
type OrganizationSettings struct {
	OrganizationID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PackagingCostDh     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DefaultExchangeRate decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	LowStockThreshold   int             `gorm:"not null"`
	AllocationPolicy    string          `gorm:"type:varchar(40);not null"`
	UpdatedBy           *uuid.UUID      `gorm:"type:uuid"`
	UpdatedAt           time.Time
}

// TableName returns the table name for GORM
func (OrganizationSettings) TableName() string {
	return "organization_settings"
}

// Defaults returns the settings used before an organization saves its own
func Defaults(orgID uuid.UUID) *OrganizationSettings {
	return &OrganizationSettings{
		OrganizationID:      orgID,
		PackagingCostDh:     DefaultPackagingCostDh,
		DefaultExchangeRate: DefaultExchangeRate,
		LowStockThreshold:   DefaultLowStockThreshold,
		AllocationPolicy:    DefaultAllocationPolicyKey,
		UpdatedAt:           time.Now(),
	}
}

// Update validates and applies new values
func (s *OrganizationSettings) Update(packagingCostDh, exchangeRate decimal.Decimal, lowStock int, policy string, by uuid.UUID) error {
	if packagingCostDh.IsNegative() {
		return shared.NewValidationError("packaging cost cannot be negative")
	}
	if !exchangeRate.IsPositive() {
		return shared.NewValidationError("exchange rate must be positive")
	}
	if lowStock < 0 {
		return shared.NewValidationError("low stock threshold cannot be negative")
	}
	if policy == "" {
		policy = DefaultAllocationPolicyKey
	}
	s.PackagingCostDh = packagingCostDh.Round(2)
	s.DefaultExchangeRate = exchangeRate
	s.LowStockThreshold = lowStock
	s.AllocationPolicy = policy
	if by != uuid.Nil {
		s.UpdatedBy = &by
	}
	s.UpdatedAt = time.Now()
	return nil
}

// Repository persists organization settings
type Repository interface {
	// Find returns the saved settings or shared.ErrNotFound
	Find(ctx context.Context, orgID uuid.UUID) (*OrganizationSettings, error)
	Save(ctx context.Context, s *OrganizationSettings) error
}
