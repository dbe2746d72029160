package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// ProductFilter narrows product listings
type ProductFilter struct {
	shared.Filter
	BrandID    *uuid.UUID
	CategoryID *uuid.UUID
	ArrivageID *uuid.UUID
	Active     *bool
	LowStock   bool
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product within an organization
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*Product, error)

	// FindByIDForUpdate finds a product and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*Product, error)

	// FindByIDs finds several products; missing ids are simply absent from the result
	FindByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]Product, error)

	// FindActive returns every active product of the organization
	FindActive(ctx context.Context, orgID uuid.UUID) ([]Product, error)

	// List returns a page of products and the total match count
	List(ctx context.Context, orgID uuid.UUID, filter ProductFilter) ([]Product, int64, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// SaveWithLock updates a product only if its version is unchanged
	SaveWithLock(ctx context.Context, product *Product) error

	// CountByBrand counts products referencing a brand
	CountByBrand(ctx context.Context, orgID, brandID uuid.UUID) (int64, error)

	// CountByCategory counts products referencing a category
	CountByCategory(ctx context.Context, orgID, categoryID uuid.UUID) (int64, error)
}

// BrandRepository persists brands
type BrandRepository interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*Brand, error)
	List(ctx context.Context, orgID uuid.UUID) ([]Brand, error)
	ExistsByName(ctx context.Context, orgID uuid.UUID, name string) (bool, error)
	Save(ctx context.Context, brand *Brand) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

// CategoryRepository persists categories
type CategoryRepository interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*Category, error)
	List(ctx context.Context, orgID uuid.UUID) ([]Category, error)
	ExistsByName(ctx context.Context, orgID uuid.UUID, name string) (bool, error)
	Save(ctx context.Context, category *Category) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}
