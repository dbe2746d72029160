package inventory

import (
	"context"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/inventory"
)

// CostAggregator recomputes an arrivage's stored totals from its lots and expenses.
// It must run inside the transaction that changed those inputs.
type CostAggregator interface {
	Recalculate(ctx context.Context, repos appshared.Repositories, orgID, arrivageID uuid.UUID) (*inventory.Arrivage, error)
}

// ArrivageCostAggregator is the default CostAggregator. Totals are rebuilt from
// scratch on every call, so repeated calls with unchanged inputs store the same values.
type ArrivageCostAggregator struct{}

// NewCostAggregator creates the default aggregator
func NewCostAggregator() *ArrivageCostAggregator {
	return &ArrivageCostAggregator{}
}

// Recalculate locks the arrivage, recomputes and saves its totals
func (ArrivageCostAggregator) Recalculate(ctx context.Context, repos appshared.Repositories, orgID, arrivageID uuid.UUID) (*inventory.Arrivage, error) {
	arrivage, err := repos.Arrivages().FindByIDForUpdate(ctx, orgID, arrivageID)
	if err != nil {
		return nil, err
	}
	lines, err := repos.Lots().CostLines(ctx, orgID, arrivageID)
	if err != nil {
		return nil, err
	}
	expenses, err := repos.Expenses().AmountsEurByArrivage(ctx, orgID, arrivageID)
	if err != nil {
		return nil, err
	}

	arrivage.ApplyTotals(inventory.ComputeTotals(arrivage, lines, expenses))
	if err := repos.Arrivages().Save(ctx, arrivage); err != nil {
		return nil, err
	}
	return arrivage, nil
}

// RecalculateAll recalculates every distinct non-nil arrivage in ids and returns
// the updated arrivages so their events can be published
func RecalculateAll(ctx context.Context, agg CostAggregator, repos appshared.Repositories, orgID uuid.UUID, ids ...*uuid.UUID) ([]*inventory.Arrivage, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]*inventory.Arrivage, 0, len(ids))
	for _, id := range ids {
		if id == nil || *id == uuid.Nil {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		a, err := agg.Recalculate(ctx, repos, orgID, *id)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

var _ CostAggregator = ArrivageCostAggregator{}
