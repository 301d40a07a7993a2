package domain

import "github.com/shopspring/decimal"

// ApplyPurchase returns the weighted-average unit cost after receiving qty
// units at unitPrice. qty must already be in the stock unit.
func ApplyPurchase(currentStock float64, avgCost Money, qty float64, unitPrice Money) Money {
	if avgCost.IsZero() || currentStock == 0 {
		return unitPrice
	}

	stock := decimal.NewFromFloat(currentStock)
	incoming := decimal.NewFromFloat(qty)
	total := stock.Add(incoming)
	if total.IsZero() {
		return avgCost
	}

	value := stock.Mul(avgCost.Decimal()).Add(incoming.Mul(unitPrice.Decimal()))
	return MoneyFromDecimal(value.Div(total))
}

// ReversePurchase removes a purchase's contribution from the average cost.
// The current average is kept when nothing would remain in stock or the
// result would be negative, since older purchases may already be consumed.
func ReversePurchase(currentStock float64, avgCost Money, qty float64, unitPrice Money) Money {
	remaining := decimal.NewFromFloat(currentStock).Sub(decimal.NewFromFloat(qty))
	if !remaining.IsPositive() {
		return avgCost
	}

	value := decimal.NewFromFloat(currentStock).Mul(avgCost.Decimal()).
		Sub(decimal.NewFromFloat(qty).Mul(unitPrice.Decimal()))
	if value.IsNegative() {
		return avgCost
	}

	return MoneyFromDecimal(value.Div(remaining))
}
