package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"modestblooming-backend/models"
)

// Store persists one cart and one wishlist per user.
type Store interface {
	Items(ctx context.Context, userID primitive.ObjectID) ([]models.CartItem, error)
	// PutLine adds item to the cart, combining it with a matching line per how.
	PutLine(ctx context.Context, userID primitive.ObjectID, item models.CartItem, how LineMerge) error
	// SetLine overwrites a line's quantity. It reports false when there is no such line.
	SetLine(ctx context.Context, userID, productID primitive.ObjectID, color string, qty int) (bool, error)
	// RemoveLine reports whether a line was removed.
	RemoveLine(ctx context.Context, userID, productID primitive.ObjectID, color string) (bool, error)
	// Release takes checked-out quantities off the cart.
	Release(ctx context.Context, userID primitive.ObjectID, lines []models.CartItem) error
	Clear(ctx context.Context, userID primitive.ObjectID) error

	WishlistIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	AddWishes(ctx context.Context, userID primitive.ObjectID, ids ...primitive.ObjectID) error
	RemoveWish(ctx context.Context, userID, productID primitive.ObjectID) error
}

var _ Store = (*MongoStore)(nil)

type MongoStore struct {
	carts     *mongo.Collection
	wishlists *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		carts:     db.Collection("carts"),
		wishlists: db.Collection("wishlists"),
	}
}

func (s *MongoStore) Items(ctx context.Context, userID primitive.ObjectID) ([]models.CartItem, error) {
	var c models.Cart
	err := s.carts.FindOne(ctx, bson.M{"userId": userID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("MongoStore.Items: %w", err)
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	return c.Items, nil
}

// Every cart write below is a single-document update, so concurrent requests
// for the same user never overwrite each other's lines.

func (s *MongoStore) PutLine(ctx context.Context, userID primitive.ObjectID, item models.CartItem, how LineMerge) error {
	_, err := s.carts.UpdateOne(ctx,
		bson.M{"userId": userID},
		putLinePipeline(item, how),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("MongoStore.PutLine: %w", err)
	}
	return nil
}

func (s *MongoStore) SetLine(ctx context.Context, userID, productID primitive.ObjectID, color string, qty int) (bool, error) {
	res, err := s.carts.UpdateOne(ctx,
		bson.M{
			"userId": userID,
			"items":  bson.M{"$elemMatch": bson.M{"productId": productID, "color": colorQuery(color)}},
		},
		mongo.Pipeline{{{Key: "$set", Value: bson.M{
			"updatedAt": "$$NOW",
			"items":     mapLines(lineMatch(productID, color), capQty(qty)),
		}}}},
	)
	if err != nil {
		return false, fmt.Errorf("MongoStore.SetLine: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) RemoveLine(ctx context.Context, userID, productID primitive.ObjectID, color string) (bool, error) {
	line := bson.M{"productId": productID, "color": colorQuery(color)}
	res, err := s.carts.UpdateOne(ctx,
		bson.M{"userId": userID, "items": bson.M{"$elemMatch": line}},
		bson.M{
			"$pull": bson.M{"items": line},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return false, fmt.Errorf("MongoStore.RemoveLine: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) Release(ctx context.Context, userID primitive.ObjectID, lines []models.CartItem) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := s.carts.UpdateOne(ctx, bson.M{"userId": userID}, releasePipeline(lines))
	if err != nil {
		return fmt.Errorf("MongoStore.Release: %w", err)
	}
	return nil
}

func (s *MongoStore) Clear(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.carts.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("MongoStore.Clear: %w", err)
	}
	return nil
}

func (s *MongoStore) WishlistIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var w models.Wishlist
	err := s.wishlists.FindOne(ctx, bson.M{"userId": userID}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []primitive.ObjectID{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("MongoStore.WishlistIDs: %w", err)
	}
	if w.ProductIDs == nil {
		w.ProductIDs = []primitive.ObjectID{}
	}
	return w.ProductIDs, nil
}

func (s *MongoStore) AddWishes(ctx context.Context, userID primitive.ObjectID, ids ...primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.wishlists.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$addToSet": bson.M{"productIds": bson.M{"$each": ids}},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("MongoStore.AddWishes: %w", err)
	}
	return nil
}

func (s *MongoStore) RemoveWish(ctx context.Context, userID, productID primitive.ObjectID) error {
	_, err := s.wishlists.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$pull": bson.M{"productIds": productID},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("MongoStore.RemoveWish: %w", err)
	}
	return nil
}
