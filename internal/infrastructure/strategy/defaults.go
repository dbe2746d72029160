package strategy

import (
	"github.com/retail/backend/internal/infrastructure/strategy/lot"
)

// NewRegistryWithDefaults creates a registry with the built-in lot policies.
// oldestLotFirst is the default.
func NewRegistryWithDefaults() (*PolicyRegistry, error) {
	r := NewPolicyRegistry()

	oldest := lot.NewOldestLotFirst()
	if err := r.Register(oldest); err != nil {
		return nil, err
	}
	if err := r.Register(lot.NewNewestLotFirst()); err != nil {
		return nil, err
	}
	if err := r.Register(lot.NewLowestCostFirst()); err != nil {
		return nil, err
	}

	if err := r.SetDefault(oldest.Name()); err != nil {
		return nil, err
	}
	return r, nil
}
