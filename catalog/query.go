package catalog

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewArrivalWindow is how long after creation a product counts as a new arrival.
const NewArrivalWindow = 30 * 24 * time.Hour

// BuildQuery translates q into a products collection filter. bestSellers is the
// current best-seller id set; it only matters when q.BestSeller is set, and an
// empty set matches nothing.
func BuildQuery(q FilterQuery, now time.Time, bestSellers []primitive.ObjectID) bson.M {
	filter := bson.M{}

	if len(q.Categories) > 0 {
		filter["category"] = bson.M{"$in": q.Categories}
	}
	if len(q.Tags) > 0 {
		filter["tags"] = bson.M{"$in": q.Tags}
	}
	if len(q.Colors) > 0 {
		filter["colors.name"] = bson.M{"$in": colorPatterns(q.Colors)}
	}

	price := bson.M{}
	if q.MinPrice != nil {
		price["$gte"] = *q.MinPrice
	}
	if q.MaxPrice != nil {
		price["$lte"] = *q.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}

	if q.OnSale {
		filter["discountPrice"] = bson.M{"$gt": 0}
		filter["$expr"] = bson.M{"$lt": bson.A{"$discountPrice", "$price"}}
	}
	if q.NewArrival {
		filter["createdAt"] = bson.M{"$gte": now.Add(-NewArrivalWindow)}
	}
	if q.BestSeller {
		ids := bestSellers
		if ids == nil {
			ids = []primitive.ObjectID{}
		}
		filter["_id"] = bson.M{"$in": ids}
	}
	return filter
}

// SortFor returns the sort document for a sort option. _id is always the last
// key so that equal values page deterministically.
func SortFor(sort string) bson.D {
	switch normalizeSort(sort) {
	case SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: -1}}
	case SortName:
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
}

// colorPatterns matches variant names case-insensitively, the way the cart
// and UnitPrice compare colors.
func colorPatterns(colors []string) bson.A {
	out := make(bson.A, 0, len(colors))
	for _, c := range colors {
		out = append(out, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(c) + "$", Options: "i"})
	}
	return out
}
