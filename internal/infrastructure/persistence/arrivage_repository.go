package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormArrivageRepository implements ArrivageRepository using GORM
type GormArrivageRepository struct {
	db *gorm.DB
}

// NewGormArrivageRepository creates a new GormArrivageRepository
func NewGormArrivageRepository(db *gorm.DB) *GormArrivageRepository {
	return &GormArrivageRepository{db: db}
}

// FindByID finds an arrivage within an organization
func (r *GormArrivageRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*inventory.Arrivage, error) {
	var arrivage inventory.Arrivage
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&arrivage).Error; err != nil {
		return nil, findError(err, "arrivage", id)
	}
	return &arrivage, nil
}

// FindByIDForUpdate finds an arrivage and locks its row
func (r *GormArrivageRepository) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*inventory.Arrivage, error) {
	var arrivage inventory.Arrivage
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&arrivage).Error; err != nil {
		return nil, findError(err, "arrivage", id)
	}
	return &arrivage, nil
}

// List returns a page of arrivages and the total match count
func (r *GormArrivageRepository) List(ctx context.Context, orgID uuid.UUID, filter inventory.ArrivageFilter) ([]inventory.Arrivage, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.Arrivage{}).Where("organization_id = ?", orgID)
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(reference) LIKE ? OR LOWER(supplier) LIKE ?", pattern, pattern)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("arrival_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("arrival_date <= ?", *filter.To)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count arrivages: %w", err)
	}

	var arrivages []inventory.Arrivage
	if err := paginate(query, filter.Filter, ArrivageSortFields, "arrival_date").Find(&arrivages).Error; err != nil {
		return nil, 0, fmt.Errorf("list arrivages: %w", err)
	}
	return arrivages, total, nil
}

// ExistsByReference checks whether another arrivage already uses the reference
func (r *GormArrivageRepository) ExistsByReference(ctx context.Context, orgID uuid.UUID, reference string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.Arrivage{}).
		Where("organization_id = ? AND LOWER(reference) = LOWER(?)", orgID, reference)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("count arrivages: %w", err)
	}
	return count > 0, nil
}

// Save creates or updates an arrivage
func (r *GormArrivageRepository) Save(ctx context.Context, arrivage *inventory.Arrivage) error {
	if err := r.db.WithContext(ctx).Save(arrivage).Error; err != nil {
		return fmt.Errorf("save arrivage: %w", err)
	}
	return nil
}

// Delete removes an arrivage
func (r *GormArrivageRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return deleteScoped(r.db.WithContext(ctx), &inventory.Arrivage{}, "arrivage", orgID, id)
}

var _ inventory.ArrivageRepository = (*GormArrivageRepository)(nil)
