package inventory

import "github.com/shopspring/decimal"

// CostLine is one lot as seen by the cost aggregation
type CostLine struct {
	Quantity         int
	UnitCostEur      decimal.NullDecimal
	ProductPriceEur  decimal.NullDecimal
	PurchasePriceMad decimal.Decimal
	ProductActive    bool
}

// CostTotals is the recomputed cost breakdown of an arrivage
type CostTotals struct {
	ItemsCostEur    decimal.Decimal
	FixedCostsEur   decimal.Decimal
	ExpensesCostEur decimal.Decimal
	TotalCostEur    decimal.Decimal
	TotalCostDh     decimal.Decimal
}

// unitCostEur prefers the lot cost, then the product EUR price, then MAD / rate
func (l CostLine) unitCostEur(rate decimal.Decimal) decimal.Decimal {
	switch {
	case l.UnitCostEur.Valid:
		return l.UnitCostEur.Decimal
	case l.ProductPriceEur.Valid:
		return l.ProductPriceEur.Decimal
	case rate.IsPositive():
		return l.PurchasePriceMad.Div(rate).Round(2)
	}
	return decimal.Zero
}

// ComputeTotals recomputes an arrivage from scratch. Lots of inactive products are
// skipped. Every monetary step is rounded to 2 decimals, so the result is a pure
// function of its inputs.
func ComputeTotals(a *Arrivage, lines []CostLine, expensesEur []decimal.Decimal) CostTotals {
	items := decimal.Zero
	for _, l := range lines {
		if !l.ProductActive {
			continue
		}
		lineCost := l.unitCostEur(a.ExchangeRate).Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		items = items.Add(lineCost)
	}

	expenses := decimal.Zero
	for _, e := range expensesEur {
		expenses = expenses.Add(e.Round(2))
	}

	fixed := a.ShippingCostEur.Add(a.PackagingCostEur).Round(2)
	totalEur := items.Add(fixed).Add(expenses).Round(2)

	return CostTotals{
		ItemsCostEur:    items.Round(2),
		FixedCostsEur:   fixed,
		ExpensesCostEur: expenses.Round(2),
		TotalCostEur:    totalEur,
		TotalCostDh:     totalEur.Mul(a.ExchangeRate).Round(2),
	}
}
