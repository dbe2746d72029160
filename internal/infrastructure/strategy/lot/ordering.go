// Package lot holds the lot ordering policies used by sale allocation.
package lot

import (
	"slices"
	"strings"

	"github.com/retail/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// OldestLotFirst depletes lots in the order they were received (FIFO)
type OldestLotFirst struct{}

// NewOldestLotFirst creates the FIFO policy
func NewOldestLotFirst() *OldestLotFirst {
	return &OldestLotFirst{}
}

func (*OldestLotFirst) Name() string { return "oldestLotFirst" }

func (*OldestLotFirst) Description() string {
	return "First In First Out - depletes the earliest received lot first"
}

// Order sorts by creation time, then id for lots created in the same instant
func (*OldestLotFirst) Order(lots []*inventory.ShipmentItem) []*inventory.ShipmentItem {
	out := slices.Clone(lots)
	slices.SortStableFunc(out, byCreation)
	return out
}

// NewestLotFirst depletes the most recently received lot first (LIFO)
type NewestLotFirst struct{}

// NewNewestLotFirst creates the LIFO policy
func NewNewestLotFirst() *NewestLotFirst {
	return &NewestLotFirst{}
}

func (*NewestLotFirst) Name() string { return "newestLotFirst" }

func (*NewestLotFirst) Description() string {
	return "Last In First Out - depletes the latest received lot first"
}

func (*NewestLotFirst) Order(lots []*inventory.ShipmentItem) []*inventory.ShipmentItem {
	out := slices.Clone(lots)
	slices.SortStableFunc(out, func(a, b *inventory.ShipmentItem) int { return byCreation(b, a) })
	return out
}

// LowestCostFirst depletes the cheapest lot first. Lots without a cost sort last.
type LowestCostFirst struct{}

// NewLowestCostFirst creates the cost-based policy
func NewLowestCostFirst() *LowestCostFirst {
	return &LowestCostFirst{}
}

func (*LowestCostFirst) Name() string { return "lowestCostFirst" }

func (*LowestCostFirst) Description() string {
	return "Lowest unit cost first, oldest first among equal costs"
}

func (*LowestCostFirst) Order(lots []*inventory.ShipmentItem) []*inventory.ShipmentItem {
	out := slices.Clone(lots)
	slices.SortStableFunc(out, func(a, b *inventory.ShipmentItem) int {
		switch {
		case a.CostPerUnitEur.Valid && !b.CostPerUnitEur.Valid:
			return -1
		case !a.CostPerUnitEur.Valid && b.CostPerUnitEur.Valid:
			return 1
		case a.CostPerUnitEur.Valid && b.CostPerUnitEur.Valid:
			if c := costOf(a).Cmp(costOf(b)); c != 0 {
				return c
			}
		}
		return byCreation(a, b)
	})
	return out
}

func costOf(l *inventory.ShipmentItem) decimal.Decimal {
	return l.CostPerUnitEur.Decimal
}

func byCreation(a, b *inventory.ShipmentItem) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}
