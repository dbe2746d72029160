package finance

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

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestNewExpense(t *testing.T) {
	orgID := uuid.New()
	rate := decimal.RequireFromString("10.8")

	t.Run("derives DH from EUR", func(t *testing.T) {
		e, err := NewExpense(orgID, "Customs fee", ExpenseCategoryCustoms, amount("25"), nil, rate, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "270.00", e.AmountDh.StringFixed(2))
	})

	t.Run("derives EUR from DH", func(t *testing.T) {
		e, err := NewExpense(orgID, "Tape", ExpenseCategoryPackaging, nil, amount("54"), rate, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, "5.00", e.AmountEur.StringFixed(2))
		assert.False(t, e.ExpenseDate.IsZero())
	})

	t.Run("keeps both when given", func(t *testing.T) {
		e, err := NewExpense(orgID, "Ads", ExpenseCategoryMarketing, amount("10"), amount("100"), decimal.Zero, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "100.00", e.AmountDh.StringFixed(2))
	})

	t.Run("validation failures", func(t *testing.T) {
		_, err := NewExpense(orgID, "", ExpenseCategoryOther, amount("1"), nil, rate, time.Now())
		assert.True(t, errors.Is(err, shared.ErrValidation))
		_, err = NewExpense(orgID, "x", ExpenseCategory("FOOD"), amount("1"), nil, rate, time.Now())
		assert.True(t, errors.Is(err, shared.ErrValidation))
		_, err = NewExpense(orgID, "x", ExpenseCategoryOther, nil, nil, rate, time.Now())
		assert.True(t, errors.Is(err, shared.ErrValidation))
		_, err = NewExpense(orgID, "x", ExpenseCategoryOther, amount("-1"), nil, rate, time.Now())
		assert.True(t, errors.Is(err, shared.ErrValidation))
		_, err = NewExpense(orgID, "x", ExpenseCategoryOther, amount("1"), nil, decimal.Zero, time.Now())
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestExpense_LinkTo(t *testing.T) {
	e, err := NewExpense(uuid.New(), "Freight", ExpenseCategoryShipping, amount("40"), nil, decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)

	first := uuid.New()
	assert.Nil(t, e.LinkTo(&first))
	second := uuid.New()
	prev := e.LinkTo(&second)
	require.NotNil(t, prev)
	assert.Equal(t, first, *prev)

	e.MarkChanged()
	evt := e.GetDomainEvents()[0].(*ExpenseChangedEvent)
	assert.Equal(t, second, *evt.ArrivageID)
}
