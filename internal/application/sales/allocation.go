package sales

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/sales"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PolicyProvider resolves a lot ordering policy by name
type PolicyProvider interface {
	GetOrDefault(name string) sales.LotOrderingPolicy
}

// ledger is the working state of one sale transaction. It holds the locked
// products and the stock each had when the transaction started, so that one
// movement per product can be written for the net change.
type ledger struct {
	repos       appshared.Repositories
	actor       appshared.Actor
	policy      sales.LotOrderingPolicy
	defaultRate decimal.Decimal
	ids         []uuid.UUID
	products    map[uuid.UUID]*catalog.Product
	before      map[uuid.UUID]int
	rates       map[uuid.UUID]decimal.Decimal
}

// openLedger locks every product in ascending id order
func openLedger(ctx context.Context, repos appshared.Repositories, actor appshared.Actor, policies PolicyProvider, productIDs []uuid.UUID) (*ledger, error) {
	cfg, err := appshared.LoadSettings(ctx, repos, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	policy := policies.GetOrDefault(cfg.AllocationPolicy)
	if policy == nil {
		return nil, shared.NewConsistencyError("no lot ordering policy available for %q", cfg.AllocationPolicy)
	}

	l := &ledger{
		repos:       repos,
		actor:       actor,
		policy:      policy,
		defaultRate: cfg.DefaultExchangeRate,
		ids:         sortedUnique(productIDs),
		products:    make(map[uuid.UUID]*catalog.Product, len(productIDs)),
		before:      make(map[uuid.UUID]int, len(productIDs)),
		rates:       make(map[uuid.UUID]decimal.Decimal),
	}
	for _, id := range l.ids {
		p, err := repos.Products().FindByIDForUpdate(ctx, actor.OrganizationID, id)
		if err != nil {
			return nil, err
		}
		l.products[id] = p
		l.before[id] = p.CurrentStock()
	}
	return l, nil
}

func (l *ledger) product(id uuid.UUID) *catalog.Product {
	return l.products[id]
}

// draw allocates qty units of a product to the sale. Availability is the lower of
// the lots' remaining units and the product's stock; a product without lots sells
// from its counters and records one allocation without a lot.
func (l *ledger) draw(ctx context.Context, sale *sales.Sale, productID uuid.UUID, qty int) error {
	product := l.products[productID]
	if product == nil {
		return shared.NewConsistencyError("product %s was not locked before allocation", productID)
	}

	stored, err := l.repos.Lots().FindByProductForUpdate(ctx, l.actor.OrganizationID, productID)
	if err != nil {
		return err
	}
	lots := make([]*inventory.ShipmentItem, len(stored))
	for i := range stored {
		lots[i] = &stored[i]
	}

	available := product.CurrentStock()
	if len(lots) > 0 {
		available = min(available, sales.Available(lots))
	}
	if qty > available {
		return shared.NewInsufficientStockError(product.Name, available, qty)
	}

	if len(lots) == 0 {
		costEur := product.UnitCostEur(l.defaultRate)
		sale.AddAllocation(productID, nil, qty, costEur, costEur.Mul(l.defaultRate))
		return product.RecordSale(qty)
	}

	draws, err := sales.Allocate(l.policy, lots, qty)
	if err != nil {
		return err
	}
	for _, d := range draws {
		if err := d.Lot.CheckInvariant(); err != nil {
			return err
		}
		if err := l.repos.Lots().Save(ctx, d.Lot); err != nil {
			return err
		}
		rate, err := l.rateOf(ctx, d.Lot.ArrivageID)
		if err != nil {
			return err
		}
		costEur := d.Lot.UnitCostEur(product.UnitCostEur(rate))
		lotID := d.Lot.ID
		sale.AddAllocation(productID, &lotID, d.Quantity, costEur, costEur.Mul(rate))
	}
	return product.RecordSale(qty)
}

// reverse returns every unit the sale's stored allocations drew, to the same lots
func (l *ledger) reverse(ctx context.Context, sale *sales.Sale) error {
	lotIDs := make([]uuid.UUID, 0, len(sale.Allocations))
	for _, a := range sale.Allocations {
		if a.ShipmentItemID != nil {
			lotIDs = append(lotIDs, *a.ShipmentItemID)
		}
	}
	lotIDs = sortedUnique(lotIDs)

	lots := make(map[uuid.UUID]*inventory.ShipmentItem, len(lotIDs))
	if len(lotIDs) > 0 {
		stored, err := l.repos.Lots().FindByIDsForUpdate(ctx, l.actor.OrganizationID, lotIDs)
		if err != nil {
			return err
		}
		for i := range stored {
			lots[stored[i].ID] = &stored[i]
		}
	}

	returned := make(map[uuid.UUID]int)
	for _, a := range sale.Allocations {
		returned[a.ProductID] += a.Quantity
		if a.ShipmentItemID == nil {
			continue
		}
		lot, ok := lots[*a.ShipmentItemID]
		if !ok {
			return shared.NewConsistencyError("sale %s drew from lot %s which no longer exists", sale.ID, *a.ShipmentItemID)
		}
		if err := lot.Release(a.Quantity); err != nil {
			return err
		}
	}
	for _, id := range lotIDs {
		if lot, ok := lots[id]; ok {
			if err := l.repos.Lots().Save(ctx, lot); err != nil {
				return err
			}
		}
	}

	for _, productID := range sortedUnique(keys(returned)) {
		product := l.products[productID]
		if product == nil {
			return shared.NewConsistencyError("product %s was not locked before reversal", productID)
		}
		if err := returnUnits(product, returned[productID]); err != nil {
			return err
		}
	}
	return nil
}

// finish saves every touched product and writes one SALE or RETURN movement for
// each product whose stock changed
func (l *ledger) finish(ctx context.Context, saleID uuid.UUID, reference string) error {
	for _, id := range l.ids {
		product := l.products[id]
		if err := l.save(ctx, product); err != nil {
			return err
		}
		previous, next := l.before[id], product.CurrentStock()
		if previous == next {
			continue
		}

		movementType := inventory.MovementSale
		if next > previous {
			movementType = inventory.MovementReturn
		}
		movement, err := inventory.NewStockMovement(l.actor.OrganizationID, id, movementType, previous, next)
		if err != nil {
			return err
		}
		movement.WithReference(reference).WithSource(saleID).WithUser(l.actor.UserID)
		if err := l.repos.Movements().Create(ctx, movement); err != nil {
			return err
		}
		product.AddDomainEvent(catalog.NewProductStockChangedEvent(product, previous, next))
	}
	return nil
}

func (l *ledger) save(ctx context.Context, product *catalog.Product) error {
	product.IncrementVersion()
	return l.repos.Products().Save(ctx, product)
}

func (l *ledger) aggregates() []shared.AggregateRoot {
	out := make([]shared.AggregateRoot, 0, len(l.ids))
	for _, id := range l.ids {
		out = append(out, l.products[id])
	}
	return out
}

func (l *ledger) rateOf(ctx context.Context, arrivageID uuid.UUID) (decimal.Decimal, error) {
	if rate, ok := l.rates[arrivageID]; ok {
		return rate, nil
	}
	arrivage, err := l.repos.Arrivages().FindByID(ctx, l.actor.OrganizationID, arrivageID)
	if err != nil {
		return decimal.Zero, err
	}
	l.rates[arrivageID] = arrivage.ExchangeRate
	return arrivage.ExchangeRate, nil
}

// returnUnits puts qty sold units back in stock. When a reset has since zeroed the
// sold counter the remainder is booked as received so stock still rises by qty.
func returnUnits(product *catalog.Product, qty int) error {
	if qty <= 0 {
		return nil
	}
	fromSold := min(qty, product.QuantitySold)
	if fromSold > 0 {
		if err := product.ReverseSale(fromSold); err != nil {
			return err
		}
	}
	if rest := qty - fromSold; rest > 0 {
		return product.Receive(rest)
	}
	return nil
}

func keys[V any](m map[uuid.UUID]V) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return slices.Compact(out)
}
