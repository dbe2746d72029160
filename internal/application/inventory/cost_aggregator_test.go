package inventory

import (
	"context"
	"testing"
	"time"

	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/finance"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrivageCostAggregator_RecalculateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	txScope := persistence.NewGormTransactionScope(f.db)
	arr := createArrivage(t, f, "ARR-IDEM", 10.8)

	priced := f.product(t, "Argan Oil", 54, 120, 0)
	fallback := f.product(t, "Rhassoul", 27, 60, 0)
	_, err := f.arrivages.AddItem(ctx, f.admin, arr.ID, AddItemRequest{ProductID: priced.ID, Quantity: 7, CostPerUnitEur: decPtr(4.35)})
	require.NoError(t, err)
	_, err = f.arrivages.AddItem(ctx, f.admin, arr.ID, AddItemRequest{ProductID: fallback.ID, Quantity: 3})
	require.NoError(t, err)

	expense, err := finance.NewExpense(f.admin.OrganizationID, "Customs", finance.ExpenseCategoryCustoms, decPtr(17.5), nil, decimal.NewFromFloat(10.8), time.Now())
	require.NoError(t, err)
	expense.LinkTo(&arr.ID)
	require.NoError(t, f.repos.Expenses().Save(ctx, expense))

	agg := NewCostAggregator()
	recalculate := func() *inventory.Arrivage {
		t.Helper()
		err := txScope.Execute(ctx, func(repos appshared.Repositories) error {
			_, err := agg.Recalculate(ctx, repos, f.admin.OrganizationID, arr.ID)
			return err
		})
		require.NoError(t, err)
		stored, err := f.repos.Arrivages().FindByID(ctx, f.admin.OrganizationID, arr.ID)
		require.NoError(t, err)
		return stored
	}

	first := recalculate()
	second := recalculate()

	assert.True(t, first.ItemsCostEur.Equal(second.ItemsCostEur), "%s != %s", first.ItemsCostEur, second.ItemsCostEur)
	assert.True(t, first.TotalCostEur.Equal(second.TotalCostEur), "%s != %s", first.TotalCostEur, second.TotalCostEur)
	assert.True(t, first.TotalCostDh.Equal(second.TotalCostDh), "%s != %s", first.TotalCostDh, second.TotalCostDh)
	assert.True(t, first.ExchangeRate.Equal(second.ExchangeRate))
	assert.True(t, first.TotalCostEur.GreaterThan(first.ItemsCostEur))
	require.NotNil(t, second.RecalculatedAt)
	assert.False(t, second.RecalculatedAt.Before(*first.RecalculatedAt))
}
