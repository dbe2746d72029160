package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/settings"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/retail/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos     appshared.Repositories
	products  *ProductService
	taxonomy  *TaxonomyService
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

	products := NewProductService(repos, txScope, nil)
	products.SetEventPublisher(publisher)

	return &fixture{
		repos:     repos,
		products:  products,
		taxonomy:  NewTaxonomyService(repos, txScope),
		publisher: publisher,
		admin:     appshared.Actor{OrganizationID: testutil.TestOrgID(), UserID: testutil.TestUserID(), Role: identity.RoleAdmin},
		staff:     appshared.Actor{OrganizationID: testutil.TestOrgID(), UserID: testutil.NewTestUUID("staff"), Role: identity.RoleStaff},
	}
}

func (f *fixture) create(t *testing.T, name string, mad, sellDh float64) *ProductResponse {
	t.Helper()
	resp, err := f.products.Create(context.Background(), f.admin, CreateProductRequest{
		Name:             name,
		PurchasePriceMad: decimal.NewFromFloat(mad),
		SellingPriceDh:   decimal.NewFromFloat(sellDh),
	})
	require.NoError(t, err)
	return resp
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("derives the EUR price and margins", func(t *testing.T) {
		f := newFixture(t)

		resp := f.create(t, "Argan oil", 54, 100)

		require.NotNil(t, resp.PurchasePriceEur)
		assert.True(t, decimal.NewFromInt(5).Equal(*resp.PurchasePriceEur))
		assert.True(t, decimal.NewFromInt(46).Equal(resp.Margin))
		assert.True(t, decimal.NewFromInt(38).Equal(resp.NetMargin))
		assert.True(t, decimal.NewFromInt(46).Equal(resp.MarginAmount))
		assert.True(t, decimal.NewFromInt(38).Equal(resp.NetMarginAmount))
		assert.Equal(t, string(catalog.MarginSuccess), resp.MarginColor)
		assert.Equal(t, 0, resp.CurrentStock)
		assert.Equal(t, settings.DefaultLowStockThreshold, resp.LowStockThreshold)
		assert.True(t, resp.IsActive)
		assert.Equal(t, []string{catalog.EventTypeProductCreated}, f.publisher.Types())
	})

	t.Run("explicit EUR price wins", func(t *testing.T) {
		f := newFixture(t)
		eur := decimal.NewFromFloat(4.5)

		resp, err := f.products.Create(ctx, f.admin, CreateProductRequest{
			Name:             "Soap",
			PurchasePriceMad: decimal.NewFromInt(54),
			PurchasePriceEur: &eur,
			SellingPriceDh:   decimal.NewFromInt(80),
		})
		require.NoError(t, err)
		assert.True(t, eur.Equal(*resp.PurchasePriceEur))
	})

	t.Run("rejects negative prices", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.products.Create(ctx, f.admin, CreateProductRequest{
			Name:             "Broken",
			PurchasePriceMad: decimal.NewFromInt(-1),
			SellingPriceDh:   decimal.NewFromInt(10),
		})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("rejects unknown brand", func(t *testing.T) {
		f := newFixture(t)
		brandID := uuid.New()

		_, err := f.products.Create(ctx, f.admin, CreateProductRequest{
			Name:             "Soap",
			BrandID:          &brandID,
			PurchasePriceMad: decimal.NewFromInt(10),
			SellingPriceDh:   decimal.NewFromInt(20),
		})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("staff cannot create", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.products.Create(ctx, f.staff, CreateProductRequest{Name: "Soap"})
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})
}

func TestProductService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("changes fields and bumps version", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, "Soap", 20, 50)
		threshold := 2

		resp, err := f.products.Update(ctx, f.admin, created.ID, UpdateProductRequest{
			Name:              "Black soap",
			SKU:               "BS-1",
			PurchasePriceMad:  decimal.NewFromInt(25),
			SellingPriceDh:    decimal.NewFromInt(60),
			LowStockThreshold: &threshold,
			Version:           &created.Version,
		})
		require.NoError(t, err)
		assert.Equal(t, "Black soap", resp.Name)
		assert.Equal(t, "BS-1", resp.SKU)
		assert.Equal(t, 2, resp.LowStockThreshold)
		assert.Equal(t, created.Version+1, resp.Version)
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, "Soap", 20, 50)
		stale := created.Version + 3

		_, err := f.products.Update(ctx, f.admin, created.ID, UpdateProductRequest{
			Name:             "Soap",
			PurchasePriceMad: decimal.NewFromInt(20),
			SellingPriceDh:   decimal.NewFromInt(50),
			Version:          &stale,
		})
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	})

	t.Run("other organization is not found", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, "Soap", 20, 50)
		outsider := f.admin
		outsider.OrganizationID = uuid.New()

		_, err := f.products.Update(ctx, outsider, created.ID, UpdateProductRequest{Name: "Soap"})
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, "Argan oil", 54, 100)
	f.create(t, "Black soap", 20, 50)
	f.create(t, "Ghassoul", 15, 40)

	page, err := f.products.List(ctx, f.staff, ProductListFilter{Search: "soap"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Black soap", page.Items[0].Name)

	page, err = f.products.List(ctx, f.staff, ProductListFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
}

func TestProductService_DeactivateRecalculatesArrivages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := f.create(t, "Soap", 20, 50)

	arrivage, err := inventory.NewArrivage(f.admin.OrganizationID, "ARR-1", decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)
	require.NoError(t, f.repos.Arrivages().Save(ctx, arrivage))
	cost := decimal.NewFromInt(5)
	lot, err := inventory.NewShipmentItem(f.admin.OrganizationID, arrivage.ID, created.ID, 2, &cost)
	require.NoError(t, err)
	require.NoError(t, f.repos.Lots().Save(ctx, lot))

	resp, err := f.products.Deactivate(ctx, f.admin, created.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)
	stored, err := f.repos.Arrivages().FindByID(ctx, f.admin.OrganizationID, arrivage.ID)
	require.NoError(t, err)
	assert.True(t, stored.ItemsCostEur.IsZero())

	_, err = f.products.Deactivate(ctx, f.admin, created.ID)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))

	resp, err = f.products.Activate(ctx, f.admin, created.ID)
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
	stored, err = f.repos.Arrivages().FindByID(ctx, f.admin.OrganizationID, arrivage.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(stored.ItemsCostEur))
	assert.True(t, decimal.NewFromInt(100).Equal(stored.TotalCostDh))
}

func TestProductService_UpdateEurPriceRecalculatesArrivages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	eur := decimal.NewFromInt(5)
	created, err := f.products.Create(ctx, f.admin, CreateProductRequest{
		Name:             "Soap",
		PurchasePriceMad: decimal.NewFromInt(54),
		PurchasePriceEur: &eur,
		SellingPriceDh:   decimal.NewFromInt(90),
	})
	require.NoError(t, err)

	arrivage, err := inventory.NewArrivage(f.admin.OrganizationID, "ARR-EUR", decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)
	require.NoError(t, f.repos.Arrivages().Save(ctx, arrivage))
	// a lot without its own cost falls back to the product's EUR price
	lot, err := inventory.NewShipmentItem(f.admin.OrganizationID, arrivage.ID, created.ID, 10, nil)
	require.NoError(t, err)
	require.NoError(t, f.repos.Lots().Save(ctx, lot))

	update := func(eur *decimal.Decimal) {
		t.Helper()
		_, err := f.products.Update(ctx, f.admin, created.ID, UpdateProductRequest{
			Name:             "Soap",
			PurchasePriceMad: decimal.NewFromInt(54),
			PurchasePriceEur: eur,
			SellingPriceDh:   decimal.NewFromInt(90),
		})
		require.NoError(t, err)
	}
	itemsCost := func() decimal.Decimal {
		t.Helper()
		stored, err := f.repos.Arrivages().FindByID(ctx, f.admin.OrganizationID, arrivage.ID)
		require.NoError(t, err)
		return stored.ItemsCostEur
	}

	t.Run("only the EUR price changes", func(t *testing.T) {
		seven := decimal.NewFromInt(7)
		update(&seven)
		assert.True(t, decimal.NewFromInt(70).Equal(itemsCost()), itemsCost().String())
	})

	t.Run("EUR price re-derived from the default rate", func(t *testing.T) {
		update(nil)
		derived := decimal.NewFromInt(54).Div(settings.DefaultExchangeRate).Round(2)
		assert.True(t, derived.Mul(decimal.NewFromInt(10)).Equal(itemsCost()), itemsCost().String())
	})
}

func TestProductService_GetUsesPackagingSetting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := f.create(t, "Soap", 20, 50)

	stored := settings.Defaults(f.admin.OrganizationID)
	stored.PackagingCostDh = decimal.NewFromInt(5)
	require.NoError(t, f.repos.Settings().Save(ctx, stored))

	resp, err := f.products.Get(ctx, f.staff, created.ID)
	require.NoError(t, err)
	// (50 - 20 - 5) / 50
	assert.True(t, decimal.NewFromInt(50).Equal(resp.NetMargin))
}
