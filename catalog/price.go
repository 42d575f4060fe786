package catalog

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"modestblooming-backend/models"
)

var ErrUnknownColor = errors.New("color not available for this product")

// FindColor returns the variant named color, matched case-insensitively.
func FindColor(p models.Product, color string) (models.ColorVariant, bool) {
	for _, c := range p.Colors {
		if strings.EqualFold(c.Name, color) {
			return c, true
		}
	}
	return models.ColorVariant{}, false
}

// UnitPrice is what one unit of p in color costs right now. The first usable
// value wins: variant discount, variant price, product discount, product price.
// An empty color prices the product itself.
func UnitPrice(p models.Product, color string) (float64, error) {
	if color != "" {
		v, ok := FindColor(p, color)
		if !ok {
			return 0, ErrUnknownColor
		}
		if v.DiscountPrice != nil && *v.DiscountPrice > 0 {
			return *v.DiscountPrice, nil
		}
		if v.Price != nil && *v.Price > 0 {
			return *v.Price, nil
		}
	}
	if IsOnSale(p) {
		return *p.DiscountPrice, nil
	}
	return p.Price, nil
}

// LineTotal is unit * qty rounded to cents.
func LineTotal(unit float64, qty int) float64 {
	return decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(int64(qty))).Round(2).InexactFloat64()
}

// Sum adds amounts without float drift and rounds to cents.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}
