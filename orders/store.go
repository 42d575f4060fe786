package orders

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

type Store interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	FindByIntent(ctx context.Context, intentID string) (models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	List(ctx context.Context, status string, skip, limit int64) ([]models.Order, error)
	Count(ctx context.Context, status string) (int64, error)
	// SetStatus moves an order from one status to another. It reports false
	// when the order was not in status from.
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to string) (bool, error)
}

var _ Store = (*MongoStore)(nil)

type MongoStore struct {
	orders *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{orders: db.Collection("orders")}
}

func (s *MongoStore) Insert(ctx context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if _, err := s.orders.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("MongoStore.Insert: %w", err)
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (models.Order, error) {
	var o models.Order
	err := s.orders.FindOne(ctx, filter).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return o, ErrNotFound
	}
	if err != nil {
		return o, fmt.Errorf("MongoStore.findOne: %w", err)
	}
	return o, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindByIntent(ctx context.Context, intentID string) (models.Order, error) {
	return s.findOne(ctx, bson.M{"paymentIntentId": intentID})
}

func (s *MongoStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.find(ctx, bson.M{"userId": userID}, 0, 0)
}

func (s *MongoStore) List(ctx context.Context, status string, skip, limit int64) ([]models.Order, error) {
	return s.find(ctx, statusFilter(status), skip, limit)
}

func (s *MongoStore) Count(ctx context.Context, status string) (int64, error) {
	n, err := s.orders.CountDocuments(ctx, statusFilter(status))
	if err != nil {
		return 0, fmt.Errorf("MongoStore.Count: %w", err)
	}
	return n, nil
}

func (s *MongoStore) SetStatus(ctx context.Context, id primitive.ObjectID, from, to string) (bool, error) {
	res, err := s.orders.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("MongoStore.SetStatus: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("MongoStore.find: %w", err)
	}
	defer cursor.Close(ctx)

	list := make([]models.Order, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("MongoStore.find: %w", err)
	}
	return list, nil
}

func statusFilter(status string) bson.M {
	if status == "" {
		return bson.M{}
	}
	return bson.M{"status": status}
}
