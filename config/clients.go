package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis mengembalikan nil tanpa error jika REDIS_ADDR kosong.
func ConnectRedis(ctx context.Context, cfg *AppConfig) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		slog.Info("redis disabled, caching and shared rate limits off")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("error pinging Redis: %w", err)
	}
	slog.Info("connected to Redis", "addr", cfg.RedisAddr)
	return rdb, nil
}

// NewCloudinary mengembalikan nil jika CLOUDINARY_URL kosong.
func NewCloudinary(cfg *AppConfig) (*cloudinary.Cloudinary, error) {
	if cfg.CloudinaryURL == "" {
		slog.Warn("CLOUDINARY_URL not set, image upload disabled")
		return nil, nil
	}
	cld, err := cloudinary.NewFromURL(cfg.CloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("error configuring Cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return cld, nil
}

// NewMinio membuat client dan bucket jika belum ada.
func NewMinio(ctx context.Context, cfg *AppConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("error configuring MinIO: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("error reaching MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("error creating bucket %s: %w", cfg.MinioBucket, err)
		}
	}
	slog.Info("connected to MinIO", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	return client, nil
}

// MinioPublicBase adalah URL publik bucket untuk membentuk URL gambar.
func MinioPublicBase(cfg *AppConfig) string {
	if cfg.MinioPublicURL != "" {
		return cfg.MinioPublicURL
	}
	scheme := "http"
	if cfg.MinioUseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.MinioEndpoint + "/" + cfg.MinioBucket
}

// NewElastic mengembalikan nil jika ELASTICSEARCH_URL kosong.
func NewElastic(cfg *AppConfig) (*elasticsearch.Client, error) {
	if cfg.ElasticURL == "" {
		slog.Info("elasticsearch disabled, search uses MongoDB")
		return nil, nil
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{cfg.ElasticURL}})
	if err != nil {
		return nil, fmt.Errorf("error configuring Elasticsearch: %w", err)
	}
	return es, nil
}
