package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"modestblooming-backend/models"
)

// Store is the product persistence the catalog service needs.
type Store interface {
	Find(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Product, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	FindOne(ctx context.Context, filter bson.M) (models.Product, error)
	Insert(ctx context.Context, p *models.Product) error
	Replace(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Options(ctx context.Context) (models.FilterOptions, error)
	BestSellerIDs(ctx context.Context, limit int) ([]primitive.ObjectID, error)
	TextSearch(ctx context.Context, q string, limit int64) ([]models.Product, error)
}

var _ Store = (*MongoStore)(nil)

// MongoStore keeps products in the "products" collection and reads sales
// figures from "orders".
type MongoStore struct {
	products *mongo.Collection
	orders   *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		products: db.Collection("products"),
		orders:   db.Collection("orders"),
	}
}

func (s *MongoStore) Find(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Product, error) {
	const op = "MongoStore.Find"

	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

func (s *MongoStore) Count(ctx context.Context, filter bson.M) (int64, error) {
	n, err := s.products.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("MongoStore.Count: %w", err)
	}
	return n, nil
}

func (s *MongoStore) FindOne(ctx context.Context, filter bson.M) (models.Product, error) {
	var p models.Product
	err := s.products.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("MongoStore.FindOne: %w", err)
	}
	return p, nil
}

func (s *MongoStore) Insert(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := s.products.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("MongoStore.Insert: %w", err)
	}
	return nil
}

func (s *MongoStore) Replace(ctx context.Context, p models.Product) error {
	res, err := s.products.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("MongoStore.Replace: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var p models.Product
	err := s.products.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("MongoStore.Delete: %w", err)
	}
	return p, nil
}

func (s *MongoStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := s.products.CountDocuments(ctx, bson.M{"slug": slug}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("MongoStore.SlugExists: %w", err)
	}
	return n > 0, nil
}

func (s *MongoStore) Options(ctx context.Context) (models.FilterOptions, error) {
	const op = "MongoStore.Options"

	opts := models.FilterOptions{
		Categories: []string{},
		Tags:       []string{},
		Colors:     []models.ColorOption{},
	}

	categories, err := s.products.Distinct(ctx, "category", bson.M{})
	if err != nil {
		return opts, fmt.Errorf("%s: categories: %w", op, err)
	}
	opts.Categories = toStrings(categories)

	tags, err := s.products.Distinct(ctx, "tags", bson.M{})
	if err != nil {
		return opts, fmt.Errorf("%s: tags: %w", op, err)
	}
	opts.Tags = toStrings(tags)

	colorPipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$colors"}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$colors.name",
			"swatch": bson.M{"$first": "$colors.swatch"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "name": "$_id", "swatch": 1}}},
	}
	cursor, err := s.products.Aggregate(ctx, colorPipeline)
	if err != nil {
		return opts, fmt.Errorf("%s: colors: %w", op, err)
	}
	if err := cursor.All(ctx, &opts.Colors); err != nil {
		return opts, fmt.Errorf("%s: colors: %w", op, err)
	}

	pricePipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"min": bson.M{"$min": "$price"},
			"max": bson.M{"$max": "$price"},
		}}},
	}
	cursor, err = s.products.Aggregate(ctx, pricePipeline)
	if err != nil {
		return opts, fmt.Errorf("%s: price range: %w", op, err)
	}
	var ranges []models.PriceRange
	if err := cursor.All(ctx, &ranges); err != nil {
		return opts, fmt.Errorf("%s: price range: %w", op, err)
	}
	if len(ranges) > 0 {
		opts.PriceRange = ranges[0]
	}
	return opts, nil
}

// BestSellerIDs aggregates sold quantities over settled orders.
func (s *MongoStore) BestSellerIDs(ctx context.Context, limit int) ([]primitive.ObjectID, error) {
	const op = "MongoStore.BestSellerIDs"

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": bson.M{"$in": bson.A{
			models.OrderPaid, models.OrderShipped, models.OrderDelivered,
		}}}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{
			"_id":  "$items.productId",
			"sold": bson.M{"$sum": "$items.quantity"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "sold", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
	cursor, err := s.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// TextSearch is the search fallback used when no search engine is configured.
func (s *MongoStore) TextSearch(ctx context.Context, q string, limit int64) ([]models.Product, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"description": pattern},
		bson.M{"tags": pattern},
		bson.M{"category": pattern},
	}}
	return s.Find(ctx, filter, bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}, 0, limit)
}

func toStrings(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
