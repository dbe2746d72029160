package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/sales"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID loads a sale with its items and allocations
func (r *GormSaleRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&sale).Error; err != nil {
		return nil, findError(err, "sale", id)
	}
	if err := r.loadChildren(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// FindByIDForUpdate locks the sale row, then loads its items and allocations
func (r *GormSaleRepository) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*sales.Sale, error) {
	var sale sales.Sale
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&sale).Error; err != nil {
		return nil, findError(err, "sale", id)
	}
	if err := r.loadChildren(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *GormSaleRepository) loadChildren(ctx context.Context, sale *sales.Sale) error {
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", sale.ID).
		Order("product_name ASC").
		Find(&sale.Items).Error; err != nil {
		return fmt.Errorf("load sale items: %w", err)
	}
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", sale.ID).
		Find(&sale.Allocations).Error; err != nil {
		return fmt.Errorf("load sale allocations: %w", err)
	}
	return nil
}

// List returns a page of sales with their items
func (r *GormSaleRepository) List(ctx context.Context, orgID uuid.UUID, filter sales.SaleFilter) ([]sales.Sale, int64, error) {
	query := r.db.WithContext(ctx).Model(&sales.Sale{}).Where("organization_id = ?", orgID)
	if filter.From != nil {
		query = query.Where("sale_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("sale_date <= ?", *filter.To)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Promo != nil {
		query = query.Where("is_promo = ?", *filter.Promo)
	}
	if filter.ProductID != nil {
		query = query.Where("id IN (?)", r.db.Model(&sales.SaleItem{}).Select("sale_id").Where("product_id = ?", *filter.ProductID))
	}
	if filter.Search != "" {
		query = query.Where("LOWER(notes) LIKE ?", likePattern(filter.Search))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	var list []sales.Sale
	if err := paginate(query, filter.Filter, SaleSortFields, "sale_date").
		Preload("Items").
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	return list, total, nil
}

// Create inserts the sale with its items and allocations
func (r *GormSaleRepository) Create(ctx context.Context, sale *sales.Sale) error {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return fmt.Errorf("create sale: %w", err)
	}
	return nil
}

// Replace rewrites the sale row and swaps its items and allocations
func (r *GormSaleRepository) Replace(ctx context.Context, sale *sales.Sale) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("sale_id = ?", sale.ID).Delete(&sales.SaleAllocation{}).Error; err != nil {
		return fmt.Errorf("clear sale allocations: %w", err)
	}
	if err := db.Where("sale_id = ?", sale.ID).Delete(&sales.SaleItem{}).Error; err != nil {
		return fmt.Errorf("clear sale items: %w", err)
	}
	if err := db.Omit(clause.Associations).Save(sale).Error; err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if len(sale.Items) > 0 {
		if err := db.Create(&sale.Items).Error; err != nil {
			return fmt.Errorf("insert sale items: %w", err)
		}
	}
	if len(sale.Allocations) > 0 {
		if err := db.Create(&sale.Allocations).Error; err != nil {
			return fmt.Errorf("insert sale allocations: %w", err)
		}
	}
	return nil
}

// Delete removes the sale with its items and allocations
func (r *GormSaleRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("sale_id = ?", id).Delete(&sales.SaleAllocation{}).Error; err != nil {
		return fmt.Errorf("delete sale allocations: %w", err)
	}
	if err := db.Where("sale_id = ?", id).Delete(&sales.SaleItem{}).Error; err != nil {
		return fmt.Errorf("delete sale items: %w", err)
	}
	return deleteScoped(db, &sales.Sale{}, "sale", orgID, id)
}

var _ sales.SaleRepository = (*GormSaleRepository)(nil)
