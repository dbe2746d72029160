package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name              string           `json:"name" binding:"required,min=1,max=200"`
	SKU               string           `json:"sku" binding:"max=64"`
	Description       string           `json:"description"`
	BrandID           *uuid.UUID       `json:"brand_id"`
	CategoryID        *uuid.UUID       `json:"category_id"`
	PurchasePriceMad  decimal.Decimal  `json:"purchase_price_mad" binding:"decimal_gte0"`
	PurchasePriceEur  *decimal.Decimal `json:"purchase_price_eur" binding:"omitempty,decimal_gte0"`
	SellingPriceDh    decimal.Decimal  `json:"selling_price_dh" binding:"decimal_gte0"`
	LowStockThreshold *int             `json:"low_stock_threshold" binding:"omitempty,min=0"`
}

// UpdateProductRequest represents a request to update a product
type UpdateProductRequest struct {
	Name              string           `json:"name" binding:"required,min=1,max=200"`
	SKU               string           `json:"sku" binding:"max=64"`
	Description       string           `json:"description"`
	BrandID           *uuid.UUID       `json:"brand_id"`
	CategoryID        *uuid.UUID       `json:"category_id"`
	PurchasePriceMad  decimal.Decimal  `json:"purchase_price_mad" binding:"decimal_gte0"`
	PurchasePriceEur  *decimal.Decimal `json:"purchase_price_eur" binding:"omitempty,decimal_gte0"`
	SellingPriceDh    decimal.Decimal  `json:"selling_price_dh" binding:"decimal_gte0"`
	LowStockThreshold *int             `json:"low_stock_threshold" binding:"omitempty,min=0"`
	Version           *int             `json:"version"`
}

// ProductListFilter represents filter options for product listings
type ProductListFilter struct {
	Search     string     `form:"search"`
	BrandID    *uuid.UUID `form:"-"`
	CategoryID *uuid.UUID `form:"-"`
	ArrivageID *uuid.UUID `form:"-"`
	Active     *bool      `form:"active"`
	LowStock   bool       `form:"low_stock"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product with its stock and margin figures
type ProductResponse struct {
	ID                uuid.UUID        `json:"id"`
	Name              string           `json:"name"`
	SKU               string           `json:"sku,omitempty"`
	Description       string           `json:"description,omitempty"`
	BrandID           *uuid.UUID       `json:"brand_id,omitempty"`
	CategoryID        *uuid.UUID       `json:"category_id,omitempty"`
	ArrivageID        *uuid.UUID       `json:"arrivage_id,omitempty"`
	PurchasePriceMad  decimal.Decimal  `json:"purchase_price_mad"`
	PurchasePriceEur  *decimal.Decimal `json:"purchase_price_eur,omitempty"`
	SellingPriceDh    decimal.Decimal  `json:"selling_price_dh"`
	QuantityReceived  int              `json:"quantity_received"`
	QuantitySold      int              `json:"quantity_sold"`
	CurrentStock      int              `json:"current_stock"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	IsLowStock        bool             `json:"is_low_stock"`
	IsActive          bool             `json:"is_active"`
	Margin            decimal.Decimal  `json:"margin"`
	NetMargin         decimal.Decimal  `json:"net_margin"`
	MarginAmount      decimal.Decimal  `json:"margin_amount"`
	NetMarginAmount   decimal.Decimal  `json:"net_margin_amount"`
	MarginColor       string           `json:"margin_color"`
	StockValue        decimal.Decimal  `json:"stock_value"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Version           int              `json:"version"`
}

// TaxonomyRequest names a brand or category
type TaxonomyRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// TaxonomyResponse represents a brand or category
type TaxonomyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ToProductResponse converts a product to a response. Net margin uses the
// organization's packaging cost.
func ToProductResponse(p *catalog.Product, packagingCost decimal.Decimal) ProductResponse {
	resp := ProductResponse{
		ID:                p.ID,
		Name:              p.Name,
		SKU:               p.SKU,
		Description:       p.Description,
		BrandID:           p.BrandID,
		CategoryID:        p.CategoryID,
		ArrivageID:        p.ArrivageID,
		PurchasePriceMad:  p.PurchasePriceMad,
		SellingPriceDh:    p.SellingPriceDh,
		QuantityReceived:  p.QuantityReceived,
		QuantitySold:      p.QuantitySold,
		CurrentStock:      p.CurrentStock(),
		LowStockThreshold: p.LowStockThreshold,
		IsLowStock:        p.IsLowStock(),
		IsActive:          p.IsActive(),
		Margin:            p.Margin(),
		NetMargin:         p.NetMargin(packagingCost),
		MarginAmount:      catalog.MarginAmount(p.SellingPriceDh, p.PurchasePriceMad),
		NetMarginAmount:   catalog.NetMarginAmount(p.SellingPriceDh, p.PurchasePriceMad, packagingCost),
		MarginColor:       string(catalog.ColorFor(p.Margin())),
		StockValue:        p.StockValue(),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		Version:           p.Version,
	}
	if p.PurchasePriceEur.Valid {
		eur := p.PurchasePriceEur.Decimal
		resp.PurchasePriceEur = &eur
	}
	return resp
}

// ToBrandResponse converts a brand to a response
func ToBrandResponse(b *catalog.Brand) TaxonomyResponse {
	return TaxonomyResponse{ID: b.ID, Name: b.Name, CreatedAt: b.CreatedAt}
}

// ToCategoryResponse converts a category to a response
func ToCategoryResponse(c *catalog.Category) TaxonomyResponse {
	return TaxonomyResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}
