package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormShipmentItemRepository implements ShipmentItemRepository using GORM
type GormShipmentItemRepository struct {
	db *gorm.DB
}

// NewGormShipmentItemRepository creates a new GormShipmentItemRepository
func NewGormShipmentItemRepository(db *gorm.DB) *GormShipmentItemRepository {
	return &GormShipmentItemRepository{db: db}
}

// FindByID finds a lot within an organization
func (r *GormShipmentItemRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*inventory.ShipmentItem, error) {
	var item inventory.ShipmentItem
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&item).Error; err != nil {
		return nil, findError(err, "shipment item", id)
	}
	return &item, nil
}

// FindByIDForUpdate finds a lot and locks its row
func (r *GormShipmentItemRepository) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*inventory.ShipmentItem, error) {
	var item inventory.ShipmentItem
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&item).Error; err != nil {
		return nil, findError(err, "shipment item", id)
	}
	return &item, nil
}

// FindByArrivage returns the lots of an arrivage, oldest first
func (r *GormShipmentItemRepository) FindByArrivage(ctx context.Context, orgID, arrivageID uuid.UUID) ([]inventory.ShipmentItem, error) {
	var items []inventory.ShipmentItem
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND arrivage_id = ?", orgID, arrivageID).
		Order("created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("find shipment items: %w", err)
	}
	return items, nil
}

// FindByIDsForUpdate loads and locks the given lots in id order
func (r *GormShipmentItemRepository) FindByIDsForUpdate(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]inventory.ShipmentItem, error) {
	if len(ids) == 0 {
		return []inventory.ShipmentItem{}, nil
	}

	var items []inventory.ShipmentItem
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("organization_id = ? AND id IN ?", orgID, ids).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("lock shipment items: %w", err)
	}
	return items, nil
}

// FindByProductForUpdate loads and locks every lot of a product, oldest first
func (r *GormShipmentItemRepository) FindByProductForUpdate(ctx context.Context, orgID, productID uuid.UUID) ([]inventory.ShipmentItem, error) {
	var items []inventory.ShipmentItem
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("organization_id = ? AND product_id = ?", orgID, productID).
		Order("created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("lock product lots: %w", err)
	}
	return items, nil
}

// CostLines joins the arrivage's lots with their products
func (r *GormShipmentItemRepository) CostLines(ctx context.Context, orgID, arrivageID uuid.UUID) ([]inventory.CostLine, error) {
	var lines []inventory.CostLine
	if err := r.db.WithContext(ctx).
		Table("shipment_items").
		Select(`shipment_items.quantity AS quantity,
			shipment_items.cost_per_unit_eur AS unit_cost_eur,
			products.purchase_price_eur AS product_price_eur,
			products.purchase_price_mad AS purchase_price_mad,
			products.is_active AS product_active`).
		Joins("JOIN products ON products.id = shipment_items.product_id AND products.organization_id = shipment_items.organization_id").
		Where("shipment_items.organization_id = ? AND shipment_items.arrivage_id = ?", orgID, arrivageID).
		Order("shipment_items.created_at ASC").
		Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("load cost lines: %w", err)
	}
	return lines, nil
}

// Save creates or updates a lot
func (r *GormShipmentItemRepository) Save(ctx context.Context, item *inventory.ShipmentItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("save shipment item: %w", err)
	}
	return nil
}

// Delete removes a lot
func (r *GormShipmentItemRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return deleteScoped(r.db.WithContext(ctx), &inventory.ShipmentItem{}, "shipment item", orgID, id)
}

var _ inventory.ShipmentItemRepository = (*GormShipmentItemRepository)(nil)
