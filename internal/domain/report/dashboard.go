package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Period is an inclusive date range; a zero bound is open
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// SalesTotals aggregates the sales of a period
type SalesTotals struct {
	SaleCount int64           `json:"sale_count"`
	UnitsSold int64           `json:"units_sold"`
	RevenueDh decimal.Decimal `json:"revenue_dh"`
	CogsDh    decimal.Decimal `json:"cogs_dh"`
}

// ProductRevenue is one row of the top products ranking
type ProductRevenue struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitsSold   int64           `json:"units_sold"`
	RevenueDh   decimal.Decimal `json:"revenue_dh"`
	CogsDh      decimal.Decimal `json:"cogs_dh"`
	ProfitDh    decimal.Decimal `json:"profit_dh"`
}

// SaleLine is one sold product line, flattened for exports
type SaleLine struct {
	SaleID       uuid.UUID       `json:"sale_id"`
	SaleDate     time.Time       `json:"sale_date"`
	Kind         string          `json:"kind"`
	IsPromo      bool            `json:"is_promo"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	LineTotal    decimal.Decimal `json:"line_total"`
	CogsDh       decimal.Decimal `json:"cogs_dh"`
}

// Dashboard is the KPI summary of an organization over a period
type Dashboard struct {
	Period        Period           `json:"period"`
	RevenueDh     decimal.Decimal  `json:"revenue_dh"`
	UnitsSold     int64            `json:"units_sold"`
	SaleCount     int64            `json:"sale_count"`
	CogsDh        decimal.Decimal  `json:"cogs_dh"`
	GrossProfitDh decimal.Decimal  `json:"gross_profit_dh"`
	ExpensesDh    decimal.Decimal  `json:"expenses_dh"`
	NetProfitDh   decimal.Decimal  `json:"net_profit_dh"`
	StockValueDh  decimal.Decimal  `json:"stock_value_dh"`
	LowStockCount int              `json:"low_stock_count"`
	AverageMargin decimal.Decimal  `json:"average_margin"`
	TopProducts   []ProductRevenue `json:"top_products"`
	ComputedAt    time.Time        `json:"computed_at"`
}

// Finish derives the profit figures from the collected totals
func (d *Dashboard) Finish() {
	d.GrossProfitDh = d.RevenueDh.Sub(d.CogsDh).Round(2)
	d.NetProfitDh = d.GrossProfitDh.Sub(d.ExpensesDh).Round(2)
}

// Repository defines the read queries behind the dashboard and exports
type Repository interface {
	// SalesTotals sums revenue, units and cost of goods of sales dated in the period
	SalesTotals(ctx context.Context, orgID uuid.UUID, period Period) (SalesTotals, error)

	// TopProducts ranks products by revenue in the period
	TopProducts(ctx context.Context, orgID uuid.UUID, period Period, limit int) ([]ProductRevenue, error)

	// ExpensesDh sums expenses dated in the period
	ExpensesDh(ctx context.Context, orgID uuid.UUID, period Period) (decimal.Decimal, error)

	// SaleLines returns every sold line of the period, oldest first
	SaleLines(ctx context.Context, orgID uuid.UUID, period Period) ([]SaleLine, error)
}
