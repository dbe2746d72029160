package sales

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appinventory "github.com/retail/backend/internal/application/inventory"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/sales"
	"github.com/retail/backend/internal/domain/settings"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/retail/backend/internal/infrastructure/strategy"
	"github.com/retail/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	repos     appshared.Repositories
	txScope   appshared.TransactionScope
	service   *SaleService
	publisher *testutil.RecordingPublisher
	logs      *observer.ObservedLogs
	staff     appshared.Actor
	admin     appshared.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewSQLiteDB(t, persistence.Models()...)
	repos := persistence.NewRepositories(db)
	txScope := persistence.NewGormTransactionScope(db)
	registry, err := strategy.NewRegistryWithDefaults()
	require.NoError(t, err)

	core, logs := observer.New(zap.ErrorLevel)
	publisher := testutil.NewRecordingPublisher()
	service := NewSaleService(repos, txScope, registry, zap.New(core))
	service.SetEventPublisher(publisher)

	return &fixture{
		db:        db,
		repos:     repos,
		txScope:   txScope,
		service:   service,
		publisher: publisher,
		logs:      logs,
		staff:     appshared.Actor{OrganizationID: testutil.TestOrgID(), UserID: testutil.NewTestUUID("staff"), Role: identity.RoleStaff},
		admin:     appshared.Actor{OrganizationID: testutil.TestOrgID(), UserID: testutil.TestUserID(), Role: identity.RoleAdmin},
	}
}

func (f *fixture) product(t *testing.T, name string, mad, sellDh int64, received int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(f.admin.OrganizationID, name, decimal.NewFromInt(mad), decimal.NewFromInt(sellDh))
	require.NoError(t, err)
	p.QuantityReceived = received
	require.NoError(t, f.repos.Products().Save(context.Background(), p))
	return p
}

func (f *fixture) arrivage(t *testing.T, ref string, rate int64) *inventory.Arrivage {
	t.Helper()
	a, err := inventory.NewArrivage(f.admin.OrganizationID, ref, decimal.NewFromInt(rate), time.Now())
	require.NoError(t, err)
	require.NoError(t, f.repos.Arrivages().Save(context.Background(), a))
	return a
}

// lot stores a lot created on the given day of January 2026
func (f *fixture) lot(t *testing.T, arrivageID, productID uuid.UUID, qty int, costEur int64, day int) *inventory.ShipmentItem {
	t.Helper()
	cost := decimal.NewFromInt(costEur)
	l, err := inventory.NewShipmentItem(f.admin.OrganizationID, arrivageID, productID, qty, &cost)
	require.NoError(t, err)
	l.CreatedAt = time.Date(2026, 1, day, 9, 0, 0, 0, time.UTC)
	require.NoError(t, f.repos.Lots().Save(context.Background(), l))
	return l
}

func (f *fixture) reloadLot(t *testing.T, id uuid.UUID) *inventory.ShipmentItem {
	t.Helper()
	l, err := f.repos.Lots().FindByID(context.Background(), f.admin.OrganizationID, id)
	require.NoError(t, err)
	return l
}

func (f *fixture) reloadProduct(t *testing.T, id uuid.UUID) *catalog.Product {
	t.Helper()
	p, err := f.repos.Products().FindByID(context.Background(), f.admin.OrganizationID, id)
	require.NoError(t, err)
	return p
}

func (f *fixture) movements(t *testing.T, productID uuid.UUID) []inventory.StockMovement {
	t.Helper()
	out, _, err := f.repos.Movements().List(context.Background(), f.admin.OrganizationID, inventory.MovementFilter{
		Filter:    shared.Filter{Page: 1, PageSize: 200, OrderBy: "occurred_at", OrderDir: "asc"},
		ProductID: &productID,
	})
	require.NoError(t, err)
	return out
}

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestSaleService_FIFOAllocation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	arr := f.arrivage(t, "ARR-1", 10)
	p := f.product(t, "Argan Oil", 20, 100, 8)
	l1 := f.lot(t, arr.ID, p.ID, 3, 2, 1)
	l2 := f.lot(t, arr.ID, p.ID, 5, 3, 2)

	resp, err := f.service.Create(ctx, f.staff, CreateSaleRequest{ProductID: p.ID, Quantity: 4, PricePerUnit: price(100)})
	require.NoError(t, err)

	assert.Equal(t, 0, f.reloadLot(t, l1.ID).QuantityRemaining)
	assert.Equal(t, 4, f.reloadLot(t, l2.ID).QuantityRemaining)
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, "Argan Oil", resp.Items[0].ProductName)

	require.Len(t, resp.Allocations, 2)
	assert.Equal(t, l1.ID, *resp.Allocations[0].ShipmentItemID)
	assert.Equal(t, 3, resp.Allocations[0].Quantity)
	assert.Equal(t, l2.ID, *resp.Allocations[1].ShipmentItemID)
	assert.Equal(t, 1, resp.Allocations[1].Quantity)

	product := f.reloadProduct(t, p.ID)
	assert.Equal(t, 4, product.QuantitySold)
	assert.Equal(t, 4, product.CurrentStock())

	moves := f.movements(t, p.ID)
	require.Len(t, moves, 1)
	assert.Equal(t, inventory.MovementSale, moves[0].Type)
	assert.Equal(t, 8, moves[0].PreviousQty)
	assert.Equal(t, 4, moves[0].NewQty)
	require.NotNil(t, moves[0].SourceID)
	assert.Equal(t, resp.ID, *moves[0].SourceID)

	assert.Contains(t, f.publisher.Types(), sales.EventTypeSaleRecorded)
}

func TestSaleService_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	arr := f.arrivage(t, "ARR-1", 10)
	p := f.product(t, "Rose Water", 20, 50, 7)
	l1 := f.lot(t, arr.ID, p.ID, 3, 2, 1)
	l2 := f.lot(t, arr.ID, p.ID, 4, 2, 2)

	_, err := f.service.Create(ctx, f.staff, CreateSaleRequest{ProductID: p.ID, Quantity: 10, PricePerUnit: price(50)})
	require.Error(t, err)

	var stockErr *shared.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 7, stockErr.Available)
	assert.Equal(t, 10, stockErr.Requested)
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

	assert.Equal(t, 3, f.reloadLot(t, l1.ID).QuantityRemaining)
	assert.Equal(t, 4, f.reloadLot(t, l2.ID).QuantityRemaining)
	assert.Equal(t, 0, f.reloadProduct(t, p.ID).QuantitySold)
	assert.Empty(t, f.movements(t, p.ID))

	page, err := f.service.List(ctx, f.staff, SaleListFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Zero(t, f.logs.Len())
}

func TestSaleService_AvailabilityIsCappedByProductStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	arr := f.arrivage(t, "ARR-1", 10)
	p := f.product(t, "Henna", 10, 30, 2)
	f.lot(t, arr.ID, p.ID, 5, 1, 1)

	_, err := f.service.Create(ctx, f.staff, CreateSaleRequest{ProductID: p.ID, Quantity: 3})
	var stockErr *shared.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 2, stockErr.Available)
}

func TestSaleService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	arr := f.arrivage(t, "ARR-E2E", 10)
	p := f.product(t, "Saffron", 25, 10, 20)
	l1 := f.lot(t, arr.ID, p.ID, 10, 2, 1)
	l2 := f.lot(t, arr.ID, p.ID, 10, 3, 2)

	resp, err := f.service.Create(ctx, f.staff, CreateSaleRequest{ProductID: p.ID, Quantity: 12, PricePerUnit: price(10)})
	require.NoError(t, err)
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(120)))
	// 10 x 2 EUR + 2 x 3 EUR at 10 DH/EUR
	assert.True(t, resp.CostOfGoodsDh.Equal(decimal.NewFromInt(260)), resp.CostOfGoodsDh.String())

	lot1, lot2 := f.reloadLot(t, l1.ID), f.reloadLot(t, l2.ID)
	assert.Equal(t, 0, lot1.QuantityRemaining)
	assert.Equal(t, 10, lot1.QuantitySold)
	assert.Equal(t, 8, lot2.QuantityRemaining)
	assert.Equal(t, 2, lot2.QuantitySold)

	var recalculated *inventory.Arrivage
	err = f.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		recalculated, err = appinventory.NewCostAggregator().Recalculate(ctx, repos, f.admin.OrganizationID, arr.ID)
		return err
	})
	require.NoError(t, err)
	assert.True(t, recalculated.ItemsCostEur.Equal(decimal.NewFromInt(50)), recalculated.ItemsCostEur.String())
	assert.True(t, recalculated.TotalCostDh.Equal(decimal.NewFromInt(500)))
}

func TestSaleService_DeleteRestoresAllocations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	arr := f.arrivage(t, "ARR-1", 10)
	p := f.product(t, "Amlou", 30, 80, 8)
	l1 := f.lot(t, arr.ID, p.ID, 3, 2, 1)
	l2 := f.lot(t, arr.ID, p.ID, 5, 3, 2)

	sale, err := f.service.Create(ctx, f.staff, CreateSaleRequest{ProductID: p.ID, Quantity: 4})
	require.NoError(t, err)

	t.Run("staff may not delete", func(t *testing.T) {
		err := f.service.Delete(ctx, f.staff, sale.ID)
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})

	require.NoError(t, f.service.Delete(ctx, f.admin, sale.ID))

	lot1, lot2 := f.reloadLot(t, l1.ID), f.reloadLot(t, l2.ID)
	assert.Equal(t, 3, lot1.QuantityRemaining)
	assert.Equal(t, 0, lot1.QuantitySold)
	assert.Equal(t, 5, lot2.QuantityRemaining)
	assert.Equal(t, 0, lot2.QuantitySold)

	product := f.reloadProduct(t, p.ID)
	assert.Equal(t, 0, product.QuantitySold)
	assert.Equal(t, 8, product.CurrentStock())

	moves := f.movements(t, p.ID)
	require.Len(t, moves, 2)
	assert.Equal(t, inventory.MovementReturn, moves[1].Type)
	assert.Equal(t, 4, moves[1].Quantity)
	assert.Equal(t, ReferenceSaleDeleted, moves[1].Reference)

	_, err = f.service.Get(ctx, f.staff, sale.ID)
	assert.True(t, shared.IsNotFound(err))
	assert.Contains(t, f.publisher.Types(), sales.EventTypeSaleDeleted)
}

func TestSaleService_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	arr := f.arrivage(t, "ARR-1", 10)
	p := f.product(t, "Black Soap", 15, 40, 10)
	l1 := f.lot(t, arr.ID, p.ID, 4, 2, 1)
	l2 := f.lot(t, arr.ID, p.ID, 6, 3, 2)

	sale, err := f.service.Create(ctx, f.staff, CreateSaleRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	t.Run("growing the sale writes one SALE movement for the difference", func(t *testing.T) {
		updated, err := f.service.Update(ctx, f.admin, sale.ID, UpdateSaleRequest{
			Items: []SaleLineRequest{{ProductID: p.ID, Quantity: 6, PricePerUnit: price(35)}},
		})
		require.NoError(t, err)
		assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(210)))
		assert.Equal(t, 6, updated.TotalQuantity)

		assert.Equal(t, 0, f.reloadLot(t, l1.ID).QuantityRemaining)
		assert.Equal(t, 4, f.reloadLot(t, l2.ID).QuantityRemaining)
		assert.Equal(t, 6, f.reloadProduct(t, p.ID).QuantitySold)

		moves := f.movements(t, p.ID)
		require.Len(t, moves, 2)
		assert.Equal(t, inventory.MovementSale, moves[1].Type)
		assert.Equal(t, -3, moves[1].Quantity)
	})

	t.Run("same quantity writes no movement", func(t *testing.T) {
		_, err := f.service.Update(ctx, f.admin, sale.ID, UpdateSaleRequest{
			Items: []SaleLineRequest{{ProductID: p.ID, Quantity: 6, PricePerUnit: price(30)}},
			Notes: "repriced",
		})
		require.NoError(t, err)
		assert.Len(t, f.movements(t, p.ID), 2)
	})

	t.Run("shrinking writes a RETURN movement", func(t *testing.T) {
		_, err := f.service.Update(ctx, f.admin, sale.ID, UpdateSaleRequest{
			Items: []SaleLineRequest{{ProductID: p.ID, Quantity: 1}},
		})
		require.NoError(t, err)

		moves := f.movements(t, p.ID)
		require.Len(t, moves, 3)
		assert.Equal(t, inventory.MovementReturn, moves[2].Type)
		assert.Equal(t, 5, moves[2].Quantity)
		assert.Equal(t, 3, f.reloadLot(t, l1.ID).QuantityRemaining)
		assert.Equal(t, 6, f.reloadLot(t, l2.ID).QuantityRemaining)
	})

	t.Run("too many units leaves the sale untouched", func(t *testing.T) {
		_, err := f.service.Update(ctx, f.admin, sale.ID, UpdateSaleRequest{
			Items: []SaleLineRequest{{ProductID: p.ID, Quantity: 11}},
		})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

		got, err := f.service.Get(ctx, f.staff, sale.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.TotalQuantity)
		assert.Equal(t, 1, f.reloadProduct(t, p.ID).QuantitySold)
	})

	t.Run("a single sale keeps one line", func(t *testing.T) {
		other := f.product(t, "Ghassoul", 5, 20, 3)
		_, err := f.service.Update(ctx, f.admin, sale.ID, UpdateSaleRequest{
			Items: []SaleLineRequest{{ProductID: p.ID, Quantity: 1}, {ProductID: other.ID, Quantity: 1}},
		})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestSaleService_LegacyStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Old Stock", 54, 90, 5)

	resp, err := f.service.Create(ctx, f.staff, CreateSaleRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(270)), "defaults to the selling price")

	require.Len(t, resp.Allocations, 1)
	assert.Nil(t, resp.Allocations[0].ShipmentItemID)
	// 54 MAD at the default 10.80 rate
	assert.True(t, resp.Allocations[0].UnitCostEur.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 2, f.reloadProduct(t, p.ID).CurrentStock())

	require.NoError(t, f.service.Delete(ctx, f.admin, resp.ID))
	assert.Equal(t, 5, f.reloadProduct(t, p.ID).CurrentStock())
}

func TestSaleService_BundleIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	arr := f.arrivage(t, "ARR-1", 10)
	soap := f.product(t, "Soap", 10, 30, 5)
	oil := f.product(t, "Oil", 40, 120, 1)
	soapLot := f.lot(t, arr.ID, soap.ID, 5, 1, 1)
	f.lot(t, arr.ID, oil.ID, 1, 4, 1)

	_, err := f.service.CreateBundle(ctx, f.staff, CreateBundleRequest{
		Items: []SaleLineRequest{
			{ProductID: soap.ID, Quantity: 2},
			{ProductID: oil.ID, Quantity: 2},
		},
	})
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	assert.Equal(t, 5, f.reloadLot(t, soapLot.ID).QuantityRemaining)
	assert.Equal(t, 0, f.reloadProduct(t, soap.ID).QuantitySold)
	assert.Empty(t, f.movements(t, soap.ID))

	resp, err := f.service.CreateBundle(ctx, f.staff, CreateBundleRequest{
		Items: []SaleLineRequest{
			{ProductID: soap.ID, Quantity: 2, PricePerUnit: price(25)},
			{ProductID: oil.ID, Quantity: 1, PricePerUnit: price(100)},
		},
		Notes: "gift box",
	})
	require.NoError(t, err)
	assert.Equal(t, string(sales.SaleKindBundle), resp.Kind)
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(150)))
	assert.Len(t, f.movements(t, soap.ID), 1)
	assert.Len(t, f.movements(t, oil.ID), 1)

	t.Run("list by product", func(t *testing.T) {
		page, err := f.service.List(ctx, f.staff, SaleListFilter{ProductID: &oil.ID, Kind: "BUNDLE"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})
}

func TestSaleService_InactiveProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Retired", 10, 30, 5)
	require.NoError(t, p.Deactivate())
	require.NoError(t, f.repos.Products().Save(ctx, p))

	_, err := f.service.Create(ctx, f.staff, CreateSaleRequest{ProductID: p.ID, Quantity: 1})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestSaleService_PolicyFromSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cfg := settings.Defaults(f.admin.OrganizationID)
	require.NoError(t, cfg.Update(decimal.NewFromInt(8), decimal.NewFromInt(10), 5, "newestLotFirst", f.admin.UserID))
	require.NoError(t, f.repos.Settings().Save(ctx, cfg))

	arr := f.arrivage(t, "ARR-1", 10)
	p := f.product(t, "Cumin", 10, 30, 8)
	l1 := f.lot(t, arr.ID, p.ID, 3, 2, 1)
	l2 := f.lot(t, arr.ID, p.ID, 5, 3, 2)

	_, err := f.service.Create(ctx, f.staff, CreateSaleRequest{ProductID: p.ID, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 3, f.reloadLot(t, l1.ID).QuantityRemaining)
	assert.Equal(t, 1, f.reloadLot(t, l2.ID).QuantityRemaining)
}

func TestSaleService_ConcurrentSalesDoNotOverdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	arr := f.arrivage(t, "ARR-1", 10)
	p := f.product(t, "Last Units", 10, 30, 5)
	lot := f.lot(t, arr.ID, p.ID, 5, 1, 1)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Create(ctx, f.staff, CreateSaleRequest{ProductID: p.ID, Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, shared.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, rejected)
	assert.Equal(t, 0, f.reloadLot(t, lot.ID).QuantityRemaining)
	assert.Equal(t, 5, f.reloadProduct(t, p.ID).QuantitySold)
	assert.Len(t, f.movements(t, p.ID), 5)
}

func TestSaleService_MissingLotIsLoggedAsInconsistency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	arr := f.arrivage(t, "ARR-1", 10)
	p := f.product(t, "Drifted", 10, 30, 3)
	lot := f.lot(t, arr.ID, p.ID, 3, 1, 1)

	sale, err := f.service.Create(ctx, f.staff, CreateSaleRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, f.repos.Lots().Delete(ctx, f.admin.OrganizationID, lot.ID))

	err = f.service.Delete(ctx, f.admin, sale.ID)
	assert.True(t, errors.Is(err, shared.ErrConsistency))
	require.Equal(t, 1, f.logs.Len())
	assert.Equal(t, "Sale allocation inconsistency", f.logs.All()[0].Message)

	_, err = f.service.Get(ctx, f.staff, sale.ID)
	assert.NoError(t, err, "failed delete must roll back")
}
