package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// SaleFilter narrows sale listings
type SaleFilter struct {
	shared.Filter
	From      *time.Time
	To        *time.Time
	ProductID *uuid.UUID
	Kind      SaleKind
	Promo     *bool
}

// SaleRepository persists sales with their items and allocations
type SaleRepository interface {
	// FindByID loads a sale with items and allocations
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*Sale, error)
	// FindByIDForUpdate loads and locks a sale row
	FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*Sale, error)
	List(ctx context.Context, orgID uuid.UUID, filter SaleFilter) ([]Sale, int64, error)
	// Create inserts the sale, its items and its allocations
	Create(ctx context.Context, sale *Sale) error
	// Replace rewrites the sale row and swaps its items and allocations
	Replace(ctx context.Context, sale *Sale) error
	// Delete removes the sale with its items and allocations
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}
