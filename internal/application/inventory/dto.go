package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/finance"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// AdjustStockRequest represents a manual stock correction
type AdjustStockRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	Reason   string `json:"reason" binding:"required,oneof=CORRECTION DAMAGE LOSS FOUND INVENTORY_COUNT OTHER"`
	Notes    string `json:"notes" binding:"max=1000"`
}

// ResetStockRequest forces a product to an exact stock level
type ResetStockRequest struct {
	TargetStock int    `json:"target_stock" binding:"min=0"`
	ResetSold   bool   `json:"reset_sold"`
	Reason      string `json:"reason" binding:"omitempty,oneof=CORRECTION DAMAGE LOSS FOUND INVENTORY_COUNT OTHER"`
	Notes       string `json:"notes" binding:"max=1000"`
}

// StockChangeResponse is the outcome of an adjustment or reset
type StockChangeResponse struct {
	ProductID        uuid.UUID        `json:"product_id"`
	NewStock         int              `json:"new_stock"`
	QuantityReceived int              `json:"quantity_received"`
	QuantitySold     int              `json:"quantity_sold"`
	Movement         MovementResponse `json:"movement"`
}

// MovementResponse represents a stock movement in API responses
type MovementResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"product_id"`
	Type        string     `json:"type"`
	Quantity    int        `json:"quantity"`
	PreviousQty int        `json:"previous_qty"`
	NewQty      int        `json:"new_qty"`
	Reason      string     `json:"reason,omitempty"`
	Reference   string     `json:"reference,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	SourceID    *uuid.UUID `json:"source_id,omitempty"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// MovementListFilter represents filter options for the movement log
type MovementListFilter struct {
	ProductID *uuid.UUID `form:"-"`
	Type      string     `form:"type" binding:"omitempty,oneof=SALE ADJUSTMENT ARRIVAGE RETURN"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	Search    string     `form:"search"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CreateArrivageRequest represents a request to create an arrivage
type CreateArrivageRequest struct {
	Reference        string           `json:"reference" binding:"required,max=100"`
	Supplier         string           `json:"supplier" binding:"max=200"`
	ExchangeRate     *decimal.Decimal `json:"exchange_rate"`
	ShippingCostEur  decimal.Decimal  `json:"shipping_cost_eur" binding:"decimal_gte0"`
	PackagingCostEur decimal.Decimal  `json:"packaging_cost_eur" binding:"decimal_gte0"`
	ArrivalDate      time.Time        `json:"arrival_date"`
	Status           string           `json:"status" binding:"omitempty,oneof=PENDING RECEIVED"`
	Notes            string           `json:"notes"`
}

// UpdateArrivageRequest represents a request to update an arrivage
type UpdateArrivageRequest struct {
	Reference        string          `json:"reference" binding:"required,max=100"`
	Supplier         string          `json:"supplier" binding:"max=200"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	ShippingCostEur  decimal.Decimal `json:"shipping_cost_eur" binding:"decimal_gte0"`
	PackagingCostEur decimal.Decimal `json:"packaging_cost_eur" binding:"decimal_gte0"`
	ArrivalDate      time.Time       `json:"arrival_date"`
	Status           string          `json:"status" binding:"required,oneof=PENDING RECEIVED"`
	Notes            string          `json:"notes"`
}

// ArrivageListFilter represents filter options for arrivage listings
type ArrivageListFilter struct {
	Search   string     `form:"search"`
	Status   string     `form:"status" binding:"omitempty,oneof=PENDING RECEIVED"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ArrivageResponse represents an arrivage in API responses
type ArrivageResponse struct {
	ID               uuid.UUID       `json:"id"`
	Reference        string          `json:"reference"`
	Supplier         string          `json:"supplier,omitempty"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	ShippingCostEur  decimal.Decimal `json:"shipping_cost_eur"`
	PackagingCostEur decimal.Decimal `json:"packaging_cost_eur"`
	ItemsCostEur     decimal.Decimal `json:"items_cost_eur"`
	TotalCostEur     decimal.Decimal `json:"total_cost_eur"`
	TotalCostDh      decimal.Decimal `json:"total_cost_dh"`
	ArrivalDate      time.Time       `json:"arrival_date"`
	Status           string          `json:"status"`
	Notes            string          `json:"notes,omitempty"`
	RecalculatedAt   *time.Time      `json:"recalculated_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// ArrivageDetailResponse is an arrivage with its lots and linked expenses
type ArrivageDetailResponse struct {
	ArrivageResponse
	Items    []ShipmentItemResponse `json:"items"`
	Expenses []LinkedExpense        `json:"expenses,omitempty"`
}

// LinkedExpense is an expense charged to an arrivage
type LinkedExpense struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	AmountEur   decimal.Decimal `json:"amount_eur"`
	AmountDh    decimal.Decimal `json:"amount_dh"`
	ExpenseDate time.Time       `json:"expense_date"`
}

// AddItemRequest adds a lot to an arrivage
type AddItemRequest struct {
	ProductID      uuid.UUID        `json:"product_id" binding:"required"`
	Quantity       int              `json:"quantity" binding:"required,min=1"`
	CostPerUnitEur *decimal.Decimal `json:"cost_per_unit_eur" binding:"omitempty,decimal_gte0"`
}

// UpdateItemRequest changes a lot. A nil cost leaves the cost unchanged; a
// different ArrivageID moves the lot.
type UpdateItemRequest struct {
	Quantity       int              `json:"quantity" binding:"required,min=1"`
	CostPerUnitEur *decimal.Decimal `json:"cost_per_unit_eur" binding:"omitempty,decimal_gte0"`
	ClearCost      bool             `json:"clear_cost"`
	ArrivageID     *uuid.UUID       `json:"arrivage_id"`
}

// ShipmentItemResponse represents a lot in API responses
type ShipmentItemResponse struct {
	ID                uuid.UUID        `json:"id"`
	ArrivageID        uuid.UUID        `json:"arrivage_id"`
	ProductID         uuid.UUID        `json:"product_id"`
	ProductName       string           `json:"product_name,omitempty"`
	Quantity          int              `json:"quantity"`
	QuantitySold      int              `json:"quantity_sold"`
	QuantityRemaining int              `json:"quantity_remaining"`
	CostPerUnitEur    *decimal.Decimal `json:"cost_per_unit_eur"`
	CostPerUnitDh     decimal.Decimal  `json:"cost_per_unit_dh"`
	CreatedAt         time.Time        `json:"created_at"`
}

// ToMovementResponse converts a domain movement to a response
func ToMovementResponse(m *inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:          m.ID,
		ProductID:   m.ProductID,
		Type:        m.Type.String(),
		Quantity:    m.Quantity,
		PreviousQty: m.PreviousQty,
		NewQty:      m.NewQty,
		Reason:      m.Reason,
		Reference:   m.Reference,
		Notes:       m.Notes,
		SourceID:    m.SourceID,
		UserID:      m.UserID,
		OccurredAt:  m.OccurredAt,
	}
}

// ToArrivageResponse converts a domain arrivage to a response
func ToArrivageResponse(a *inventory.Arrivage) ArrivageResponse {
	return ArrivageResponse{
		ID:               a.ID,
		Reference:        a.Reference,
		Supplier:         a.Supplier,
		ExchangeRate:     a.ExchangeRate,
		ShippingCostEur:  a.ShippingCostEur,
		PackagingCostEur: a.PackagingCostEur,
		ItemsCostEur:     a.ItemsCostEur,
		TotalCostEur:     a.TotalCostEur,
		TotalCostDh:      a.TotalCostDh,
		ArrivalDate:      a.ArrivalDate,
		Status:           string(a.Status),
		Notes:            a.Notes,
		RecalculatedAt:   a.RecalculatedAt,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		Version:          a.Version,
	}
}

// ToShipmentItemResponse converts a lot to a response. product may be nil.
func ToShipmentItemResponse(item *inventory.ShipmentItem, product *catalog.Product, rate decimal.Decimal) ShipmentItemResponse {
	resp := ShipmentItemResponse{
		ID:                item.ID,
		ArrivageID:        item.ArrivageID,
		ProductID:         item.ProductID,
		Quantity:          item.Quantity,
		QuantitySold:      item.QuantitySold,
		QuantityRemaining: item.QuantityRemaining,
		CreatedAt:         item.CreatedAt,
	}
	if item.CostPerUnitEur.Valid {
		cost := item.CostPerUnitEur.Decimal
		resp.CostPerUnitEur = &cost
	}
	fallback := decimal.Zero
	if product != nil {
		resp.ProductName = product.Name
		fallback = product.UnitCostEur(rate)
	}
	resp.CostPerUnitDh = item.CostPerUnitDh(fallback, rate)
	return resp
}

func toLinkedExpense(e *finance.Expense) LinkedExpense {
	return LinkedExpense{
		ID:          e.ID,
		Description: e.Description,
		Category:    e.Category.String(),
		AmountEur:   e.AmountEur,
		AmountDh:    e.AmountDh,
		ExpenseDate: e.ExpenseDate,
	}
}
