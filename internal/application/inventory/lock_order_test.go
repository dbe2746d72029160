package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockLog records the rows locked inside a transaction, in order
type lockLog struct {
	entries []string
}

type lockingScope struct {
	inner appshared.TransactionScope
	log   *lockLog
}

func (s lockingScope) Execute(ctx context.Context, fn func(repos appshared.Repositories) error) error {
	return s.inner.Execute(ctx, func(repos appshared.Repositories) error {
		return fn(lockingRepos{Repositories: repos, log: s.log})
	})
}

type lockingRepos struct {
	appshared.Repositories
	log *lockLog
}

func (r lockingRepos) Products() catalog.ProductRepository {
	return lockingProducts{ProductRepository: r.Repositories.Products(), log: r.log}
}

func (r lockingRepos) Arrivages() inventory.ArrivageRepository {
	return lockingArrivages{ArrivageRepository: r.Repositories.Arrivages(), log: r.log}
}

type lockingProducts struct {
	catalog.ProductRepository
	log *lockLog
}

func (p lockingProducts) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*catalog.Product, error) {
	p.log.entries = append(p.log.entries, "product:"+id.String())
	return p.ProductRepository.FindByIDForUpdate(ctx, orgID, id)
}

type lockingArrivages struct {
	inventory.ArrivageRepository
	log *lockLog
}

func (a lockingArrivages) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*inventory.Arrivage, error) {
	a.log.entries = append(a.log.entries, "arrivage:"+id.String())
	return a.ArrivageRepository.FindByIDForUpdate(ctx, orgID, id)
}

func TestArrivageService_LocksProductsBeforeArrivage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	log := &lockLog{}
	service := NewArrivageService(f.repos, lockingScope{inner: persistence.NewGormTransactionScope(f.db), log: log}, NewCostAggregator())

	arr := createArrivage(t, f, "ARR-LOCK", 10)
	first := f.product(t, "Cumin", 20, 45, 0)
	second := f.product(t, "Ras el Hanout", 35, 80, 0)

	log.entries = nil
	_, err := service.AddItem(ctx, f.admin, arr.ID, AddItemRequest{ProductID: first.ID, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"product:" + first.ID.String(), "arrivage:" + arr.ID.String()}, log.entries)

	_, err = service.AddItem(ctx, f.admin, arr.ID, AddItemRequest{ProductID: second.ID, Quantity: 2})
	require.NoError(t, err)

	log.entries = nil
	require.NoError(t, service.Delete(ctx, f.admin, arr.ID))

	products := sortedKeys(map[uuid.UUID]struct{}{first.ID: {}, second.ID: {}})
	assert.Equal(t, []string{
		"product:" + products[0].String(),
		"product:" + products[1].String(),
		"arrivage:" + arr.ID.String(),
	}, log.entries)

	assert.Zero(t, f.reload(t, first.ID).QuantityReceived)
	assert.Zero(t, f.reload(t, second.ID).QuantityReceived)
	lots, err := f.repos.Lots().FindByArrivage(ctx, f.admin.OrganizationID, arr.ID)
	require.NoError(t, err)
	assert.Empty(t, lots)
}
