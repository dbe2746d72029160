package persistence

import (
	"context"

	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/finance"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/sales"
	"github.com/retail/backend/internal/domain/settings"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// If fn returns an error the transaction is rolled back, otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appshared.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// gormRepositories hands out repositories bound to one database handle
type gormRepositories struct {
	db *gorm.DB
}

// NewRepositories returns every repository over db. Passing a transaction handle
// scopes all of them to that transaction.
func NewRepositories(db *gorm.DB) appshared.Repositories {
	return &gormRepositories{db: db}
}

func (r *gormRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.db)
}

func (r *gormRepositories) Brands() catalog.BrandRepository {
	return NewGormBrandRepository(r.db)
}

func (r *gormRepositories) Categories() catalog.CategoryRepository {
	return NewGormCategoryRepository(r.db)
}

func (r *gormRepositories) Arrivages() inventory.ArrivageRepository {
	return NewGormArrivageRepository(r.db)
}

func (r *gormRepositories) Lots() inventory.ShipmentItemRepository {
	return NewGormShipmentItemRepository(r.db)
}

func (r *gormRepositories) Movements() inventory.MovementRepository {
	return NewGormStockMovementRepository(r.db)
}

func (r *gormRepositories) Sales() sales.SaleRepository {
	return NewGormSaleRepository(r.db)
}

func (r *gormRepositories) Expenses() finance.ExpenseRepository {
	return NewGormExpenseRepository(r.db)
}

func (r *gormRepositories) Settings() settings.Repository {
	return NewGormSettingsRepository(r.db)
}

func (r *gormRepositories) Members() identity.MemberRepository {
	return NewGormMemberRepository(r.db)
}

var _ appshared.TransactionScope = (*GormTransactionScope)(nil)
