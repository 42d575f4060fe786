package orders

import (
	"github.com/shopspring/decimal"

	"modestblooming-backend/models"
)

// ShippingRules decides the shipping charge for a subtotal.
type ShippingRules struct {
	FreeThreshold float64
	FlatRate      float64
}

func (r ShippingRules) For(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.IsZero() || subtotal.GreaterThanOrEqual(decimal.NewFromFloat(r.FreeThreshold)) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(r.FlatRate)
}

// Price fills subtotal, shipping and total on o from its items.
func Price(o *models.Order, rules ShippingRules) {
	subtotal := decimal.Zero
	for i := range o.Items {
		it := &o.Items[i]
		line := decimal.NewFromFloat(it.UnitPrice).Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		it.LineTotal = line.InexactFloat64()
		subtotal = subtotal.Add(line)
	}
	shipping := rules.For(subtotal)

	o.Subtotal = subtotal.Round(2).InexactFloat64()
	o.Shipping = shipping.Round(2).InexactFloat64()
	o.Total = subtotal.Add(shipping).Round(2).InexactFloat64()
}

// AmountCents converts a money amount to the smallest currency unit.
func AmountCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
