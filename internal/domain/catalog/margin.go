package catalog

import "github.com/shopspring/decimal"

// DefaultPackagingCost is the per-unit packaging cost in DH used by net margin
var DefaultPackagingCost = decimal.NewFromFloat(8.00)

var hundred = decimal.NewFromInt(100)

// MarginColor is the display classification of a margin percentage
type MarginColor string

const (
	MarginSuccess MarginColor = "success"
	MarginWarning MarginColor = "warning"
	MarginError   MarginColor = "error"
)

// Margin returns round2((selling - purchase) / selling * 100), or 0 when selling is zero
func Margin(selling, purchase decimal.Decimal) decimal.Decimal {
	if selling.IsZero() {
		return decimal.Zero
	}
	return selling.Sub(purchase).Div(selling).Mul(hundred).Round(2)
}

// NetMargin is Margin after subtracting the packaging cost from the profit
func NetMargin(selling, purchase, packagingCost decimal.Decimal) decimal.Decimal {
	if selling.IsZero() {
		return decimal.Zero
	}
	return selling.Sub(purchase).Sub(packagingCost).Div(selling).Mul(hundred).Round(2)
}

// MarginAmount is the gross profit per unit
func MarginAmount(selling, purchase decimal.Decimal) decimal.Decimal {
	return selling.Sub(purchase).Round(2)
}

// NetMarginAmount is the profit per unit after packaging
func NetMarginAmount(selling, purchase, packagingCost decimal.Decimal) decimal.Decimal {
	return selling.Sub(purchase).Sub(packagingCost).Round(2)
}

// AverageMargin averages the positive margins only. Loss-making and break-even
// items are left out of the KPI; an empty set averages to zero.
func AverageMargin(margins []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	n := 0
	for _, m := range margins {
		if !m.IsPositive() {
			continue
		}
		sum = sum.Add(m)
		n++
	}
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2)
}

// AverageProductMargin averages the gross margin of active products
func AverageProductMargin(products []Product) decimal.Decimal {
	margins := make([]decimal.Decimal, 0, len(products))
	for i := range products {
		if products[i].IsActive() {
			margins = append(margins, products[i].Margin())
		}
	}
	return AverageMargin(margins)
}

// ColorFor classifies a margin: >= 40 success, >= 30 warning, otherwise error
func ColorFor(margin decimal.Decimal) MarginColor {
	switch {
	case margin.GreaterThanOrEqual(decimal.NewFromInt(40)):
		return MarginSuccess
	case margin.GreaterThanOrEqual(decimal.NewFromInt(30)):
		return MarginWarning
	default:
		return MarginError
	}
}
