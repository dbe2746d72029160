package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/retail/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	repos     appshared.Repositories
	ledger    *StockLedger
	arrivages *ArrivageService
	publisher *testutil.RecordingPublisher
	admin     appshared.Actor
	staff     appshared.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewSQLiteDB(t, persistence.Models()...)
	repos := persistence.NewRepositories(db)
	txScope := persistence.NewGormTransactionScope(db)
	publisher := testutil.NewRecordingPublisher()

	ledger := NewStockLedger(repos, txScope)
	ledger.SetEventPublisher(publisher)
	arrivages := NewArrivageService(repos, txScope, NewCostAggregator())
	arrivages.SetEventPublisher(publisher)

	return &fixture{
		db:        db,
		repos:     repos,
		ledger:    ledger,
		arrivages: arrivages,
		publisher: publisher,
		admin:     appshared.Actor{OrganizationID: testutil.TestOrgID(), UserID: testutil.TestUserID(), Role: identity.RoleSuperAdmin},
		staff:     appshared.Actor{OrganizationID: testutil.TestOrgID(), UserID: testutil.NewTestUUID("staff"), Role: identity.RoleStaff},
	}
}

func (f *fixture) product(t *testing.T, name string, mad, sellDh int64, received int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(f.admin.OrganizationID, name, decimal.NewFromInt(mad), decimal.NewFromInt(sellDh))
	require.NoError(t, err)
	p.QuantityReceived = received
	p.ClearDomainEvents()
	require.NoError(t, f.repos.Products().Save(context.Background(), p))
	return p
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *catalog.Product {
	t.Helper()
	p, err := f.repos.Products().FindByID(context.Background(), f.admin.OrganizationID, id)
	require.NoError(t, err)
	return p
}

func (f *fixture) movements(t *testing.T, productID uuid.UUID) []inventory.StockMovement {
	t.Helper()
	filter := inventory.MovementFilter{
		Filter:    shared.Filter{Page: 1, PageSize: 200, OrderBy: "occurred_at", OrderDir: "asc"},
		ProductID: &productID,
	}
	out, _, err := f.repos.Movements().List(context.Background(), f.admin.OrganizationID, filter)
	require.NoError(t, err)
	return out
}

func decPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}
