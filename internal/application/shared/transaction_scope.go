package shared

import (
	"context"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/finance"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/sales"
	"github.com/retail/backend/internal/domain/settings"
)

// Repositories gives access to every repository over one database handle.
// Inside TransactionScope.Execute all of them share the same transaction.
type Repositories interface {
	Products() catalog.ProductRepository
	Brands() catalog.BrandRepository
	Categories() catalog.CategoryRepository
	Arrivages() inventory.ArrivageRepository
	Lots() inventory.ShipmentItemRepository
	Movements() inventory.MovementRepository
	Sales() sales.SaleRepository
	Expenses() finance.ExpenseRepository
	Settings() settings.Repository
	Members() identity.MemberRepository
}

// TransactionScope runs a unit of work atomically.
// If fn returns an error the transaction is rolled back, otherwise it is committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}
