package sales

import (
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared"
)

// LotOrderingPolicy decides the order in which a product's lots are depleted
type LotOrderingPolicy interface {
	Name() string
	Description() string
	// Order returns the lots in depletion order without modifying the input slice
	Order(lots []*inventory.ShipmentItem) []*inventory.ShipmentItem
}

// LotDraw is the quantity taken from one lot
type LotDraw struct {
	Lot      *inventory.ShipmentItem
	Quantity int
}

// Available sums the remaining units across lots
func Available(lots []*inventory.ShipmentItem) int {
	n := 0
	for _, l := range lots {
		n += l.QuantityRemaining
	}
	return n
}

// Allocate takes requested units from lots in policy order. The plan is built first
// and only applied once it covers the full quantity, so on error no lot is modified.
// Callers check availability beforehand; running out here is a consistency error.
func Allocate(policy LotOrderingPolicy, lots []*inventory.ShipmentItem, requested int) ([]LotDraw, error) {
	if requested <= 0 {
		return nil, shared.NewValidationError("quantity must be positive")
	}

	remaining := requested
	draws := make([]LotDraw, 0)
	for _, lot := range policy.Order(lots) {
		if remaining == 0 {
			break
		}
		if lot.QuantityRemaining <= 0 {
			continue
		}
		toDeduct := min(remaining, lot.QuantityRemaining)
		draws = append(draws, LotDraw{Lot: lot, Quantity: toDeduct})
		remaining -= toDeduct
	}
	if remaining > 0 {
		return nil, shared.NewConsistencyError("lots exhausted with %d of %d units unallocated", remaining, requested)
	}

	for _, d := range draws {
		if err := d.Lot.Take(d.Quantity); err != nil {
			return nil, err
		}
	}
	return draws, nil
}
