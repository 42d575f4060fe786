package catalog

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"modestblooming-backend/models"
)

// IsOnSale reports whether p carries a usable discount.
func IsOnSale(p models.Product) bool {
	return p.DiscountPrice != nil && *p.DiscountPrice > 0 && *p.DiscountPrice < p.Price
}

// IsNewArrival reports whether p was created inside NewArrivalWindow.
func IsNewArrival(p models.Product, now time.Time) bool {
	return !p.CreatedAt.IsZero() && !p.CreatedAt.Before(now.Add(-NewArrivalWindow))
}

// Decorate fills the query-time flags of every product in place.
func Decorate(products []models.Product, now time.Time, bestSellers []primitive.ObjectID) {
	best := make(map[primitive.ObjectID]struct{}, len(bestSellers))
	for _, id := range bestSellers {
		best[id] = struct{}{}
	}
	for i := range products {
		products[i].OnSale = IsOnSale(products[i])
		products[i].NewArrival = IsNewArrival(products[i], now)
		_, products[i].BestSeller = best[products[i].ID]
	}
}
