package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/catalog"
	"gorm.io/gorm"
)

// GormBrandRepository implements BrandRepository using GORM
type GormBrandRepository struct {
	db *gorm.DB
}

// NewGormBrandRepository creates a new GormBrandRepository
func NewGormBrandRepository(db *gorm.DB) *GormBrandRepository {
	return &GormBrandRepository{db: db}
}

// FindByID finds a brand within an organization
func (r *GormBrandRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*catalog.Brand, error) {
	var brand catalog.Brand
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&brand).Error; err != nil {
		return nil, findError(err, "brand", id)
	}
	return &brand, nil
}

// List returns all brands ordered by name
func (r *GormBrandRepository) List(ctx context.Context, orgID uuid.UUID) ([]catalog.Brand, error) {
	var brands []catalog.Brand
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("name ASC").
		Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return brands, nil
}

// ExistsByName checks for a brand with the same name, ignoring case
func (r *GormBrandRepository) ExistsByName(ctx context.Context, orgID uuid.UUID, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&catalog.Brand{}).
		Where("organization_id = ? AND LOWER(name) = LOWER(?)", orgID, name).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("count brands: %w", err)
	}
	return count > 0, nil
}

// Save creates or updates a brand
func (r *GormBrandRepository) Save(ctx context.Context, brand *catalog.Brand) error {
	if err := r.db.WithContext(ctx).Save(brand).Error; err != nil {
		return fmt.Errorf("save brand: %w", err)
	}
	return nil
}

// Delete removes a brand
func (r *GormBrandRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return deleteScoped(r.db.WithContext(ctx), &catalog.Brand{}, "brand", orgID, id)
}

// GormCategoryRepository implements CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByID finds a category within an organization
func (r *GormCategoryRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*catalog.Category, error) {
	var category catalog.Category
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&category).Error; err != nil {
		return nil, findError(err, "category", id)
	}
	return &category, nil
}

// List returns all categories ordered by name
func (r *GormCategoryRepository) List(ctx context.Context, orgID uuid.UUID) ([]catalog.Category, error) {
	var categories []catalog.Category
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ExistsByName checks for a category with the same name, ignoring case
func (r *GormCategoryRepository) ExistsByName(ctx context.Context, orgID uuid.UUID, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&catalog.Category{}).
		Where("organization_id = ? AND LOWER(name) = LOWER(?)", orgID, name).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("count categories: %w", err)
	}
	return count > 0, nil
}

// Save creates or updates a category
func (r *GormCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

// Delete removes a category
func (r *GormCategoryRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return deleteScoped(r.db.WithContext(ctx), &catalog.Category{}, "category", orgID, id)
}

var (
	_ catalog.BrandRepository    = (*GormBrandRepository)(nil)
	_ catalog.CategoryRepository = (*GormCategoryRepository)(nil)
)
