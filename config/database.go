package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB menginisialisasi koneksi ke MongoDB.
func ConnectDB(ctx context.Context, uri string, mode string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	if mode == "atlas" {
		slog.Info("connected to MongoDB Atlas")
	} else {
		slog.Info("connected to local MongoDB")
	}
	return client, nil
}

// EnsureIndexes membuat index yang dibutuhkan oleh query aplikasi.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		"products": {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
			{Keys: bson.D{{Key: "colors.name", Value: 1}}},
			{Keys: bson.D{{Key: "price", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "verifyTokenHash", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "resetTokenHash", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		"carts": {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"wishlists": {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"orders": {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "paymentIntentId", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

// EnsureAdmin mempromosikan akun dengan email tersebut menjadi admin jika
// sudah terdaftar. Akun yang belum ada akan menjadi admin saat registrasi.
func EnsureAdmin(ctx context.Context, db *mongo.Database, email string) error {
	if email == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := db.Collection("users").UpdateOne(ctx,
		bson.M{"email": email, "role": bson.M{"$ne": "admin"}},
		bson.M{"$set": bson.M{"role": "admin", "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("promote admin: %w", err)
	}
	if res.ModifiedCount > 0 {
		slog.Info("account promoted to admin", "email", email)
	}
	return nil
}
