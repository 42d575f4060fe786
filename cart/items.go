package cart

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"modestblooming-backend/models"
)

// MaxQuantity caps any single cart line.
const MaxQuantity = 99

// LineMerge says how an incoming quantity combines with a line already in the cart.
type LineMerge int

const (
	// MergeAdd adds the quantities, as when a shopper adds more of an item.
	MergeAdd LineMerge = iota
	// MergeMax keeps the larger quantity, as when a guest cart is synced in.
	MergeMax
)

func capQty(n int) int {
	if n > MaxQuantity {
		return MaxQuantity
	}
	return n
}

// Lines are keyed by product and color; colors compare case-insensitively.
func sameLine(it models.CartItem, productID primitive.ObjectID, color string) bool {
	return it.ProductID == productID && strings.EqualFold(it.Color, color)
}

// colorQuery matches a stored line color in find and $pull filters. A line
// without a color may have the field missing.
func colorQuery(color string) any {
	if color == "" {
		return bson.M{"$in": bson.A{nil, ""}}
	}
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(color) + "$", Options: "i"}
}

// lineMatch is the aggregation form of sameLine over the variable $$it.
func lineMatch(productID primitive.ObjectID, color string) bson.M {
	return bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{"$$it.productId", productID}},
		bson.M{"$eq": bson.A{
			bson.M{"$toLower": bson.M{"$ifNull": bson.A{"$$it.color", ""}}},
			bson.M{"$literal": strings.ToLower(color)},
		}},
	}}
}

// mapLines rewrites the matching line with quantity and leaves the others.
func mapLines(match bson.M, quantity any) bson.M {
	return bson.M{"$map": bson.M{
		"input": "$items",
		"as":    "it",
		"in": bson.M{"$cond": bson.A{
			match,
			bson.M{"$mergeObjects": bson.A{"$$it", bson.M{"quantity": quantity}}},
			"$$it",
		}},
	}}
}

// putLinePipeline folds item into the cart in one update: the matching line
// is combined per how, otherwise item is appended.
func putLinePipeline(item models.CartItem, how LineMerge) mongo.Pipeline {
	match := lineMatch(item.ProductID, item.Color)

	op := "$add"
	if how == MergeMax {
		op = "$max"
	}
	combined := bson.M{"$min": bson.A{bson.M{op: bson.A{"$$it.quantity", item.Quantity}}, MaxQuantity}}

	line := bson.M{"productId": item.ProductID, "quantity": capQty(item.Quantity)}
	if item.Color != "" {
		line["color"] = bson.M{"$literal": item.Color}
	}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"items": bson.M{"$ifNull": bson.A{"$items", bson.A{}}}}}},
		{{Key: "$set", Value: bson.M{
			"updatedAt": "$$NOW",
			"items": bson.M{"$cond": bson.M{
				"if": bson.M{"$anyElementTrue": bson.A{bson.M{"$map": bson.M{
					"input": "$items", "as": "it", "in": match,
				}}}},
				"then": mapLines(match, combined),
				"else": bson.M{"$concatArrays": bson.A{"$items", bson.A{line}}},
			}},
		}}},
	}
}

// releasePipeline subtracts checked-out quantities and drops lines that reach zero,
// so anything added to the cart meanwhile survives.
func releasePipeline(lines []models.CartItem) mongo.Pipeline {
	branches := make(bson.A, 0, len(lines))
	for _, l := range lines {
		branches = append(branches, bson.M{"case": lineMatch(l.ProductID, l.Color), "then": l.Quantity})
	}
	taken := bson.M{"$switch": bson.M{"branches": branches, "default": 0}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"updatedAt": "$$NOW",
			"items": bson.M{"$filter": bson.M{
				"input": bson.M{"$map": bson.M{
					"input": bson.M{"$ifNull": bson.A{"$items", bson.A{}}},
					"as":    "it",
					"in": bson.M{"$mergeObjects": bson.A{"$$it", bson.M{
						"quantity": bson.M{"$subtract": bson.A{"$$it.quantity", taken}},
					}}},
				}},
				"as":   "it",
				"cond": bson.M{"$gt": bson.A{"$$it.quantity", 0}},
			}},
		}}},
	}
}
