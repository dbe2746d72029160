package lot

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLot(t *testing.T, day int, cost *float64) *inventory.ShipmentItem {
	t.Helper()
	var c *decimal.Decimal
	if cost != nil {
		d := decimal.NewFromFloat(*cost)
		c = &d
	}
	l, err := inventory.NewShipmentItem(uuid.New(), uuid.New(), uuid.New(), 5, c)
	require.NoError(t, err)
	l.CreatedAt = time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
	return l
}

func ptr(v float64) *float64 { return &v }

func ids(lots []*inventory.ShipmentItem) []uuid.UUID {
	out := make([]uuid.UUID, len(lots))
	for i, l := range lots {
		out[i] = l.ID
	}
	return out
}

func TestOldestLotFirst(t *testing.T) {
	l1 := newLot(t, 1, ptr(2))
	l2 := newLot(t, 2, ptr(3))
	l3 := newLot(t, 3, ptr(1))
	input := []*inventory.ShipmentItem{l3, l1, l2}

	ordered := NewOldestLotFirst().Order(input)
	assert.Equal(t, []uuid.UUID{l1.ID, l2.ID, l3.ID}, ids(ordered))
	assert.Equal(t, l3.ID, input[0].ID, "input slice must not be reordered")
}

func TestOldestLotFirst_TieBreaksOnID(t *testing.T) {
	a := newLot(t, 1, nil)
	b := newLot(t, 1, nil)
	first, second := a, b
	if b.ID.String() < a.ID.String() {
		first, second = b, a
	}

	ordered := NewOldestLotFirst().Order([]*inventory.ShipmentItem{second, first})
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, ids(ordered))
}

func TestNewestLotFirst(t *testing.T) {
	l1 := newLot(t, 1, ptr(2))
	l2 := newLot(t, 2, ptr(3))

	ordered := NewNewestLotFirst().Order([]*inventory.ShipmentItem{l1, l2})
	assert.Equal(t, []uuid.UUID{l2.ID, l1.ID}, ids(ordered))
}

func TestLowestCostFirst(t *testing.T) {
	expensive := newLot(t, 1, ptr(5))
	uncosted := newLot(t, 1, nil)
	cheapLate := newLot(t, 3, ptr(1))
	cheapEarly := newLot(t, 2, ptr(1))

	ordered := NewLowestCostFirst().Order([]*inventory.ShipmentItem{expensive, uncosted, cheapLate, cheapEarly})
	assert.Equal(t, []uuid.UUID{cheapEarly.ID, cheapLate.ID, expensive.ID, uncosted.ID}, ids(ordered))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "oldestLotFirst", NewOldestLotFirst().Name())
	assert.Equal(t, "newestLotFirst", NewNewestLotFirst().Name())
	assert.Equal(t, "lowestCostFirst", NewLowestCostFirst().Name())
	assert.NotEmpty(t, NewLowestCostFirst().Description())
}
