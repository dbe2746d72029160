package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/report"
	"github.com/retail/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReportRepository implements report.Repository using GORM
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// SalesTotals sums the sales dated in the period
func (r *GormReportRepository) SalesTotals(ctx context.Context, orgID uuid.UUID, period report.Period) (report.SalesTotals, error) {
	type totalsResult struct {
		SaleCount int64
		UnitsSold int64
		RevenueDh decimal.Decimal
		CogsDh    decimal.Decimal
	}

	var result totalsResult
	query := r.db.WithContext(ctx).Table("sales s").
		Select(`
			COUNT(*) as sale_count,
			COALESCE(SUM(s.total_quantity), 0) as units_sold,
			COALESCE(SUM(s.total_amount), 0) as revenue_dh,
			COALESCE(SUM(s.cost_of_goods_dh), 0) as cogs_dh
		`).
		Where("s.organization_id = ?", orgID)
	if err := inPeriod(query, "s.sale_date", period).Scan(&result).Error; err != nil {
		return report.SalesTotals{}, fmt.Errorf("sum sales: %w", err)
	}

	return report.SalesTotals{
		SaleCount: result.SaleCount,
		UnitsSold: result.UnitsSold,
		RevenueDh: result.RevenueDh.Round(2),
		CogsDh:    result.CogsDh.Round(2),
	}, nil
}

// TopProducts ranks products by revenue in the period
func (r *GormReportRepository) TopProducts(ctx context.Context, orgID uuid.UUID, period report.Period, limit int) ([]report.ProductRevenue, error) {
	type revenueResult struct {
		ProductID   uuid.UUID
		ProductName string
		UnitsSold   int64
		RevenueDh   decimal.Decimal
	}

	var results []revenueResult
	query := r.db.WithContext(ctx).Table("sale_items si").
		Select(`
			si.product_id as product_id,
			MAX(si.product_name) as product_name,
			COALESCE(SUM(si.quantity), 0) as units_sold,
			COALESCE(SUM(si.line_total), 0) as revenue_dh
		`).
		Joins("JOIN sales s ON s.id = si.sale_id").
		Where("s.organization_id = ?", orgID)
	if err := inPeriod(query, "s.sale_date", period).
		Group("si.product_id").
		Order("revenue_dh DESC").
		Limit(limit).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("rank products: %w", err)
	}
	if len(results) == 0 {
		return []report.ProductRevenue{}, nil
	}

	ids := make([]uuid.UUID, len(results))
	for i, res := range results {
		ids[i] = res.ProductID
	}
	cogs, err := r.cogsByProduct(ctx, orgID, period, ids)
	if err != nil {
		return nil, err
	}

	ranking := make([]report.ProductRevenue, len(results))
	for i, res := range results {
		cost := cogs[res.ProductID]
		ranking[i] = report.ProductRevenue{
			ProductID:   res.ProductID,
			ProductName: res.ProductName,
			UnitsSold:   res.UnitsSold,
			RevenueDh:   res.RevenueDh.Round(2),
			CogsDh:      cost.Round(2),
			ProfitDh:    res.RevenueDh.Sub(cost).Round(2),
		}
	}
	return ranking, nil
}

func (r *GormReportRepository) cogsByProduct(ctx context.Context, orgID uuid.UUID, period report.Period, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	type cogsResult struct {
		ProductID uuid.UUID
		CogsDh    decimal.Decimal
	}

	var results []cogsResult
	query := r.db.WithContext(ctx).Table("sale_allocations sa").
		Select("sa.product_id as product_id, COALESCE(SUM(sa.quantity * sa.unit_cost_dh), 0) as cogs_dh").
		Joins("JOIN sales s ON s.id = sa.sale_id").
		Where("s.organization_id = ? AND sa.product_id IN ?", orgID, ids)
	if err := inPeriod(query, "s.sale_date", period).
		Group("sa.product_id").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("sum cost of goods: %w", err)
	}

	out := make(map[uuid.UUID]decimal.Decimal, len(results))
	for _, res := range results {
		out[res.ProductID] = res.CogsDh
	}
	return out, nil
}

// ExpensesDh sums the expenses dated in the period
func (r *GormReportRepository) ExpensesDh(ctx context.Context, orgID uuid.UUID, period report.Period) (decimal.Decimal, error) {
	var result struct{ Total decimal.Decimal }
	query := r.db.WithContext(ctx).Table("expenses e").
		Select("COALESCE(SUM(e.amount_dh), 0) as total").
		Where("e.organization_id = ?", orgID)
	if err := inPeriod(query, "e.expense_date", period).Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	return result.Total.Round(2), nil
}

// SaleLines returns every sold line of the period, oldest first
func (r *GormReportRepository) SaleLines(ctx context.Context, orgID uuid.UUID, period report.Period) ([]report.SaleLine, error) {
	var list []sales.Sale
	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Allocations").
		Where("organization_id = ?", orgID)
	if err := inPeriod(query, "sale_date", period).
		Order("sale_date ASC").
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("load sale lines: %w", err)
	}

	lines := make([]report.SaleLine, 0, len(list))
	for _, sale := range list {
		cogs := make(map[uuid.UUID]decimal.Decimal, len(sale.Items))
		for _, a := range sale.Allocations {
			cogs[a.ProductID] = cogs[a.ProductID].Add(a.UnitCostDh.Mul(decimal.NewFromInt(int64(a.Quantity))))
		}
		for _, item := range sale.Items {
			lines = append(lines, report.SaleLine{
				SaleID:       sale.ID,
				SaleDate:     sale.SaleDate,
				Kind:         string(sale.Kind),
				IsPromo:      sale.IsPromo,
				ProductName:  item.ProductName,
				Quantity:     item.Quantity,
				PricePerUnit: item.PricePerUnit,
				LineTotal:    item.LineTotal,
				CogsDh:       cogs[item.ProductID].Round(2),
			})
		}
	}
	return lines, nil
}

// inPeriod restricts column to the period bounds that are set
func inPeriod(query *gorm.DB, column string, period report.Period) *gorm.DB {
	if !period.From.IsZero() {
		query = query.Where(column+" >= ?", period.From)
	}
	if !period.To.IsZero() {
		query = query.Where(column+" <= ?", period.To)
	}
	return query
}

var _ report.Repository = (*GormReportRepository)(nil)
