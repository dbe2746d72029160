package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by ID within an organization
func (r *GormProductRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&product).Error; err != nil {
		return nil, findError(err, "product", id)
	}
	return &product, nil
}

// FindByIDForUpdate finds a product and locks its row for the rest of the transaction
func (r *GormProductRepository) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&product).Error; err != nil {
		return nil, findError(err, "product", id)
	}
	return &product, nil
}

// FindByIDs finds multiple products by their IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}

	var products []catalog.Product
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id IN ?", orgID, ids).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return products, nil
}

// FindActive finds all active products of an organization
func (r *GormProductRepository) FindActive(ctx context.Context, orgID uuid.UUID) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Order("name ASC").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("find active products: %w", err)
	}
	return products, nil
}

// List returns a page of products matching the filter and the total match count
func (r *GormProductRepository) List(ctx context.Context, orgID uuid.UUID, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&catalog.Product{}).Where("organization_id = ?", orgID), filter).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	var products []catalog.Product
	if err := paginate(query, filter.Filter, ProductSortFields, "name").Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

// SaveWithLock updates a product only if the stored version is the one it was loaded
// with. The caller increments the version before saving.
func (r *GormProductRepository) SaveWithLock(ctx context.Context, product *catalog.Product) error {
	var current struct{ Version int }
	result := r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Select("version").
		Where("organization_id = ? AND id = ?", product.OrganizationID, product.ID).
		Scan(&current)
	if result.Error != nil {
		return fmt.Errorf("read product version: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("product", product.ID)
	}
	if current.Version != product.Version-1 {
		return shared.ErrConcurrencyConflict
	}

	result = r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Where("organization_id = ? AND id = ? AND version = ?", product.OrganizationID, product.ID, product.Version-1).
		Updates(map[string]any{
			"name":                product.Name,
			"sku":                 product.SKU,
			"description":         product.Description,
			"brand_id":            product.BrandID,
			"category_id":         product.CategoryID,
			"arrivage_id":         product.ArrivageID,
			"purchase_price_mad":  product.PurchasePriceMad,
			"purchase_price_eur":  product.PurchasePriceEur,
			"selling_price_dh":    product.SellingPriceDh,
			"quantity_received":   product.QuantityReceived,
			"quantity_sold":       product.QuantitySold,
			"low_stock_threshold": product.LowStockThreshold,
			"is_active":           product.Active,
			"version":             product.Version,
			"updated_at":          product.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CountByBrand counts products referencing a brand
func (r *GormProductRepository) CountByBrand(ctx context.Context, orgID, brandID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Where("organization_id = ? AND brand_id = ?", orgID, brandID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count products by brand: %w", err)
	}
	return count, nil
}

// CountByCategory counts products referencing a category
func (r *GormProductRepository) CountByCategory(ctx context.Context, orgID, categoryID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Where("organization_id = ? AND category_id = ?", orgID, categoryID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count products by category: %w", err)
	}
	return count, nil
}

// applyFilter applies filter options without pagination
func (r *GormProductRepository) applyFilter(query *gorm.DB, filter catalog.ProductFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", pattern, pattern)
	}
	if filter.BrandID != nil {
		query = query.Where("brand_id = ?", *filter.BrandID)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ArrivageID != nil {
		query = query.Where("arrivage_id = ?", *filter.ArrivageID)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	if filter.LowStock {
		query = query.Where("is_active = ? AND quantity_received - quantity_sold <= low_stock_threshold", true)
	}
	return query
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
