package sales

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewSale(t *testing.T) {
	orgID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()

	t.Run("single sale total is quantity times price", func(t *testing.T) {
		s, err := NewSale(orgID, SaleKindSingle, time.Now(), []Line{{ProductID: p1, Quantity: 12, PricePerUnit: price("10")}})
		require.NoError(t, err)
		assert.Equal(t, "120.00", s.TotalAmount.StringFixed(2))
		assert.Equal(t, 12, s.TotalQuantity)
		require.Len(t, s.Items, 1)
		assert.Equal(t, s.ID, s.Items[0].SaleID)
	})

	t.Run("bundle total sums the lines", func(t *testing.T) {
		s, err := NewSale(orgID, SaleKindBundle, time.Time{}, []Line{
			{ProductID: p1, Quantity: 2, PricePerUnit: price("49.90")},
			{ProductID: p2, Quantity: 1, PricePerUnit: price("15")},
		})
		require.NoError(t, err)
		assert.Equal(t, "114.80", s.TotalAmount.StringFixed(2))
		assert.Equal(t, 3, s.TotalQuantity)
		assert.False(t, s.SaleDate.IsZero())
		assert.Equal(t, map[uuid.UUID]int{p1: 2, p2: 1}, s.QuantityByProduct())
	})

	tests := []struct {
		name  string
		kind  SaleKind
		lines []Line
	}{
		{"no lines", SaleKindBundle, nil},
		{"single with two lines", SaleKindSingle, []Line{{ProductID: p1, Quantity: 1}, {ProductID: p2, Quantity: 1}}},
		{"zero quantity", SaleKindSingle, []Line{{ProductID: p1, Quantity: 0}}},
		{"negative price", SaleKindSingle, []Line{{ProductID: p1, Quantity: 1, PricePerUnit: price("-1")}}},
		{"duplicate product in bundle", SaleKindBundle, []Line{{ProductID: p1, Quantity: 1}, {ProductID: p1, Quantity: 2}}},
		{"unknown kind", SaleKind("GIFT"), []Line{{ProductID: p1, Quantity: 1}}},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := NewSale(orgID, tt.kind, time.Now(), tt.lines)
			assert.True(t, errors.Is(err, shared.ErrValidation))
		})
	}
}

func TestSale_AddAllocation(t *testing.T) {
	p := uuid.New()
	lot := uuid.New()
	s, err := NewSale(uuid.New(), SaleKindSingle, time.Now(), []Line{{ProductID: p, Quantity: 12, PricePerUnit: price("10")}})
	require.NoError(t, err)

	s.AddAllocation(p, &lot, 10, price("2"), price("20"))
	s.AddAllocation(p, nil, 2, price("3"), price("30"))

	assert.Equal(t, 12, s.AllocatedQuantity(p))
	assert.Equal(t, "260.00", s.CostOfGoodsDh.StringFixed(2))
	assert.Equal(t, "-140.00", s.GrossProfitDh().StringFixed(2))
}

func TestSale_Replace(t *testing.T) {
	p := uuid.New()
	s, _ := NewSale(uuid.New(), SaleKindSingle, time.Now(), []Line{{ProductID: p, Quantity: 1, PricePerUnit: price("10")}})
	s.AddAllocation(p, nil, 1, price("1"), price("10"))

	require.NoError(t, s.Replace([]Line{{ProductID: p, Quantity: 3, PricePerUnit: price("9")}}, time.Time{}))
	assert.Equal(t, "27.00", s.TotalAmount.StringFixed(2))
	assert.Empty(t, s.Allocations)
	assert.True(t, s.CostOfGoodsDh.IsZero())
	assert.Equal(t, 2, s.GetVersion())

	assert.Error(t, s.Replace(nil, time.Time{}))
}
