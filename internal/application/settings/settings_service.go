package settings

import (
	"context"
	"time"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/settings"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PolicyCatalog reports which lot ordering policies can be selected
type PolicyCatalog interface {
	IsRegistered(name string) bool
	List() []string
}

// UpdateSettingsRequest is the body of a settings update
type UpdateSettingsRequest struct {
	PackagingCostDh     decimal.Decimal `json:"packaging_cost_dh" binding:"decimal_gte0"`
	DefaultExchangeRate decimal.Decimal `json:"default_exchange_rate"`
	LowStockThreshold   int             `json:"low_stock_threshold" binding:"min=0"`
	AllocationPolicy    string          `json:"allocation_policy"`
}

// SettingsResponse represents the organization settings
type SettingsResponse struct {
	PackagingCostDh     decimal.Decimal `json:"packaging_cost_dh"`
	DefaultExchangeRate decimal.Decimal `json:"default_exchange_rate"`
	LowStockThreshold   int             `json:"low_stock_threshold"`
	AllocationPolicy    string          `json:"allocation_policy"`
	AvailablePolicies   []string        `json:"available_policies,omitempty"`
	UpdatedBy           *uuid.UUID      `json:"updated_by,omitempty"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Service reads and writes per-organization settings
type Service struct {
	repos    appshared.Repositories
	policies PolicyCatalog
}

// NewService creates a new settings Service
func NewService(repos appshared.Repositories, policies PolicyCatalog) *Service {
	return &Service{repos: repos, policies: policies}
}

// Get returns the organization's settings, falling back to the defaults
func (s *Service) Get(ctx context.Context, actor appshared.Actor) (*SettingsResponse, error) {
	if err := actor.Require(identity.PermSettingsView); err != nil {
		return nil, err
	}
	current, err := appshared.LoadSettings(ctx, s.repos, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(current), nil
}

// Update validates and saves new settings
func (s *Service) Update(ctx context.Context, actor appshared.Actor, req UpdateSettingsRequest) (*SettingsResponse, error) {
	if err := actor.Require(identity.PermSettingsUpdate); err != nil {
		return nil, err
	}
	if req.AllocationPolicy != "" && s.policies != nil && !s.policies.IsRegistered(req.AllocationPolicy) {
		return nil, shared.NewValidationError("unknown allocation policy %q", req.AllocationPolicy)
	}

	current, err := appshared.LoadSettings(ctx, s.repos, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := current.Update(req.PackagingCostDh, req.DefaultExchangeRate, req.LowStockThreshold, req.AllocationPolicy, actor.UserID); err != nil {
		return nil, err
	}
	if err := s.repos.Settings().Save(ctx, current); err != nil {
		return nil, err
	}
	return s.toResponse(current), nil
}

func (s *Service) toResponse(current *settings.OrganizationSettings) *SettingsResponse {
	resp := &SettingsResponse{
		PackagingCostDh:     current.PackagingCostDh,
		DefaultExchangeRate: current.DefaultExchangeRate,
		LowStockThreshold:   current.LowStockThreshold,
		AllocationPolicy:    current.AllocationPolicy,
		UpdatedBy:           current.UpdatedBy,
		UpdatedAt:           current.UpdatedAt,
	}
	if s.policies != nil {
		resp.AvailablePolicies = s.policies.List()
	}
	return resp
}
