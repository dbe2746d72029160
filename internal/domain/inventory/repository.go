package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// MovementFilter narrows movement listings
type MovementFilter struct {
	shared.Filter
	ProductID *uuid.UUID
	Type      MovementType
	From      *time.Time
	To        *time.Time
}

// MovementRepository appends and reads stock movements. There is no update or delete.
type MovementRepository interface {
	Create(ctx context.Context, movement *StockMovement) error
	List(ctx context.Context, orgID uuid.UUID, filter MovementFilter) ([]StockMovement, int64, error)
}

// ArrivageFilter narrows arrivage listings
type ArrivageFilter struct {
	shared.Filter
	Status ArrivageStatus
	From   *time.Time
	To     *time.Time
}

// ArrivageRepository persists arrivages
type ArrivageRepository interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*Arrivage, error)
	// FindByIDForUpdate locks the arrivage row until the transaction ends
	FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*Arrivage, error)
	List(ctx context.Context, orgID uuid.UUID, filter ArrivageFilter) ([]Arrivage, int64, error)
	ExistsByReference(ctx context.Context, orgID uuid.UUID, reference string, excludeID *uuid.UUID) (bool, error)
	Save(ctx context.Context, arrivage *Arrivage) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

// ShipmentItemRepository persists lots
type ShipmentItemRepository interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*ShipmentItem, error)
	FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*ShipmentItem, error)
	FindByArrivage(ctx context.Context, orgID, arrivageID uuid.UUID) ([]ShipmentItem, error)
	// FindByIDsForUpdate loads and locks the given lots
	FindByIDsForUpdate(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]ShipmentItem, error)
	// FindByProductForUpdate loads and locks every lot of a product, oldest first
	FindByProductForUpdate(ctx context.Context, orgID, productID uuid.UUID) ([]ShipmentItem, error)
	// CostLines joins the arrivage's lots with their products for cost aggregation
	CostLines(ctx context.Context, orgID, arrivageID uuid.UUID) ([]CostLine, error)
	Save(ctx context.Context, item *ShipmentItem) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}
