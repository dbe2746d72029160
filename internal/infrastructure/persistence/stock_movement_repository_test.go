package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStockMovementRepository_List(t *testing.T) {
	db := testutil.NewSQLiteDB(t, Models()...)
	repo := NewGormStockMovementRepository(db)
	ctx := context.Background()
	orgID := testutil.TestOrgID()
	productID := uuid.New()
	otherProduct := uuid.New()

	record := func(product uuid.UUID, typ inventory.MovementType, prev, next int, at time.Time, ref string) {
		m, err := inventory.NewStockMovement(orgID, product, typ, prev, next)
		require.NoError(t, err)
		m.WithReference(ref)
		m.OccurredAt = at
		require.NoError(t, repo.Create(ctx, m))
	}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	record(productID, inventory.MovementArrivage, 0, 10, base, "ARR-001")
	record(productID, inventory.MovementSale, 10, 8, base.Add(time.Hour), "Sale")
	record(productID, inventory.MovementAdjustment, 8, 0, base.Add(2*time.Hour), inventory.ResetReference)
	record(otherProduct, inventory.MovementArrivage, 0, 4, base.Add(3*time.Hour), "ARR-002")

	t.Run("newest first by default", func(t *testing.T) {
		list, total, err := repo.List(ctx, orgID, inventory.MovementFilter{Filter: shared.Filter{Page: 1, PageSize: 10}})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, list, 4)
		assert.Equal(t, otherProduct, list[0].ProductID)
		assert.Equal(t, 10, list[3].Quantity)
	})

	t.Run("filters by product and type", func(t *testing.T) {
		list, total, err := repo.List(ctx, orgID, inventory.MovementFilter{
			Filter:    shared.Filter{Page: 1, PageSize: 10},
			ProductID: &productID,
			Type:      inventory.MovementAdjustment,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.Equal(t, 8, list[0].PreviousQty)
		assert.Equal(t, 0, list[0].NewQty)
		assert.Equal(t, -8, list[0].Quantity)
	})

	t.Run("searches the reference", func(t *testing.T) {
		_, total, err := repo.List(ctx, orgID, inventory.MovementFilter{Filter: shared.Filter{Search: "arr-"}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("bounds by time", func(t *testing.T) {
		from := base.Add(30 * time.Minute)
		to := base.Add(150 * time.Minute)
		_, total, err := repo.List(ctx, orgID, inventory.MovementFilter{From: &from, To: &to})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("is scoped to the organization", func(t *testing.T) {
		_, total, err := repo.List(ctx, uuid.New(), inventory.MovementFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestGormTransactionScope_Execute(t *testing.T) {
	db := testutil.NewSQLiteDB(t, Models()...)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()
	orgID := testutil.TestOrgID()

	t.Run("commits on success", func(t *testing.T) {
		p := newProduct(t, orgID, "Committed", 3)
		err := scope.Execute(ctx, func(repos appshared.Repositories) error {
			return repos.Products().Save(ctx, p)
		})
		require.NoError(t, err)

		_, err = NewGormProductRepository(db).FindByID(ctx, orgID, p.ID)
		assert.NoError(t, err)
	})

	t.Run("rolls back every repository on error", func(t *testing.T) {
		p := newProduct(t, orgID, "Rolled Back", 3)
		boom := errors.New("boom")
		err := scope.Execute(ctx, func(repos appshared.Repositories) error {
			if err := repos.Products().Save(ctx, p); err != nil {
				return err
			}
			m, err := inventory.NewStockMovement(orgID, p.ID, inventory.MovementAdjustment, 3, 5)
			if err != nil {
				return err
			}
			if err := repos.Movements().Create(ctx, m); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = NewGormProductRepository(db).FindByID(ctx, orgID, p.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, total, err := NewGormStockMovementRepository(db).List(ctx, orgID, inventory.MovementFilter{ProductID: &p.ID})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}
