package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// CreateSaleRequest records a single-product sale. A nil price sells at the
// product's selling price.
type CreateSaleRequest struct {
	ProductID    uuid.UUID        `json:"product_id" binding:"required"`
	Quantity     int              `json:"quantity" binding:"required,min=1"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit" binding:"omitempty,decimal_gte0"`
	SaleDate     time.Time        `json:"sale_date"`
	IsPromo      bool             `json:"is_promo"`
	Notes        string           `json:"notes" binding:"max=1000"`
}

// SaleLineRequest is one line of a bundle or an updated sale
type SaleLineRequest struct {
	ProductID    uuid.UUID        `json:"product_id" binding:"required"`
	Quantity     int              `json:"quantity" binding:"required,min=1"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit" binding:"omitempty,decimal_gte0"`
}

// CreateBundleRequest records a multi-product sale
type CreateBundleRequest struct {
	Items    []SaleLineRequest `json:"items" binding:"required,min=1,dive"`
	SaleDate time.Time         `json:"sale_date"`
	IsPromo  bool              `json:"is_promo"`
	Notes    string            `json:"notes" binding:"max=1000"`
}

// UpdateSaleRequest replaces a sale's lines. A single sale keeps exactly one line.
type UpdateSaleRequest struct {
	Items    []SaleLineRequest `json:"items" binding:"required,min=1,dive"`
	SaleDate time.Time         `json:"sale_date"`
	IsPromo  bool              `json:"is_promo"`
	Notes    string            `json:"notes" binding:"max=1000"`
}

// SaleListFilter represents filter options for sale listings
type SaleListFilter struct {
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	ProductID *uuid.UUID `form:"-"`
	Kind      string     `form:"kind" binding:"omitempty,oneof=SINGLE BUNDLE"`
	Promo     *bool      `form:"promo"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SaleItemResponse represents a sale line
type SaleItemResponse struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// AllocationResponse is the units a sale drew from one lot
type AllocationResponse struct {
	ProductID      uuid.UUID       `json:"product_id"`
	ShipmentItemID *uuid.UUID      `json:"shipment_item_id,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitCostEur    decimal.Decimal `json:"unit_cost_eur"`
	UnitCostDh     decimal.Decimal `json:"unit_cost_dh"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID            uuid.UUID            `json:"id"`
	Kind          string               `json:"kind"`
	SaleDate      time.Time            `json:"sale_date"`
	IsPromo       bool                 `json:"is_promo"`
	Notes         string               `json:"notes,omitempty"`
	TotalQuantity int                  `json:"total_quantity"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	CostOfGoodsDh decimal.Decimal      `json:"cost_of_goods_dh"`
	GrossProfitDh decimal.Decimal      `json:"gross_profit_dh"`
	Items         []SaleItemResponse   `json:"items"`
	Allocations   []AllocationResponse `json:"allocations,omitempty"`
	CreatedBy     *uuid.UUID           `json:"created_by,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Version       int                  `json:"version"`
}

// ToSaleResponse converts a domain sale to a response
func ToSaleResponse(s *sales.Sale) SaleResponse {
	resp := SaleResponse{
		ID:            s.ID,
		Kind:          string(s.Kind),
		SaleDate:      s.SaleDate,
		IsPromo:       s.IsPromo,
		Notes:         s.Notes,
		TotalQuantity: s.TotalQuantity,
		TotalAmount:   s.TotalAmount,
		CostOfGoodsDh: s.CostOfGoodsDh,
		GrossProfitDh: s.GrossProfitDh(),
		Items:         make([]SaleItemResponse, 0, len(s.Items)),
		CreatedBy:     s.CreatedBy,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Version:       s.Version,
	}
	for _, it := range s.Items {
		resp.Items = append(resp.Items, SaleItemResponse{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Quantity:     it.Quantity,
			PricePerUnit: it.PricePerUnit,
			LineTotal:    it.LineTotal,
		})
	}
	for _, a := range s.Allocations {
		resp.Allocations = append(resp.Allocations, AllocationResponse{
			ProductID:      a.ProductID,
			ShipmentItemID: a.ShipmentItemID,
			Quantity:       a.Quantity,
			UnitCostEur:    a.UnitCostEur,
			UnitCostDh:     a.UnitCostDh,
		})
	}
	return resp
}
