package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// AppConfig menampung semua variabel konfigurasi aplikasi.
type AppConfig struct {
	Port        string
	Env         string
	LogLevel    string
	CORSOrigins []string
	FrontendURL string

	MongoMode string
	MongoURI  string
	MongoDB   string

	PasetoSecretKey []byte
	TokenTTL        time.Duration

	MediaBackend     string
	CloudinaryURL    string
	CloudinaryFolder string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioBucket      string
	MinioUseSSL      bool
	MinioPublicURL   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ElasticURL   string
	ElasticIndex string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// AdminEmail mendapat peran admin saat registrasi dan saat startup.
	AdminEmail string

	StripeSecretKey       string
	StripeWebhookSecret   string
	Currency              string
	FreeShippingThreshold float64
	ShippingFlatRate      float64
}

// Load membaca flag baris perintah, lalu file .env, lalu environment variables.
// Flag menang atas environment.
func Load(args []string) (*AppConfig, error) {
	fs := pflag.NewFlagSet("modestblooming", pflag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "path to a dotenv file")
	port := fs.StringP("port", "p", "", "HTTP port, overrides PORT")
	env := fs.String("env", "", "environment name, overrides ENVIRONMENT")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(*envFile); err != nil {
		slog.Info("no .env file found, using environment variables", "path", *envFile)
	}

	cfg := &AppConfig{
		Port:        getEnv("PORT", "5000"),
		Env:         getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),

		MongoMode: getEnv("MONGO_MODE", "local"),
		MongoDB:   getEnv("MONGO_DB", "modestblooming"),

		MediaBackend:     strings.ToLower(getEnv("MEDIA_BACKEND", "cloudinary")),
		CloudinaryURL:    getEnv("CLOUDINARY_URL", ""),
		CloudinaryFolder: getEnv("CLOUDINARY_FOLDER", "modestblooming/products"),
		MinioEndpoint:    getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:   getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:   getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:      getEnv("MINIO_BUCKET", "modestblooming"),
		MinioPublicURL:   getEnv("MINIO_PUBLIC_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		ElasticURL:   getEnv("ELASTICSEARCH_URL", ""),
		ElasticIndex: getEnv("ELASTICSEARCH_INDEX", "products"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "Modest Blooming <noreply@modestblooming.com>"),

		AdminEmail: strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		Currency:            strings.ToLower(getEnv("CURRENCY", "usd")),
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *env != "" {
		cfg.Env = *env
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	// Atur URI MongoDB berdasarkan mode
	if cfg.MongoMode == "atlas" {
		cfg.MongoURI = getEnv("MONGO_URI_ATLAS", "")
		if cfg.MongoURI == "" {
			collect(errors.New("MONGO_MODE 'atlas' but MONGO_URI_ATLAS is not set"))
		}
	} else {
		cfg.MongoURI = getEnv("MONGO_URI_LOCAL", "mongodb://localhost:27017/modestblooming")
	}

	// Atur Kunci Paseto
	key := getEnv("PASETO_SECRET_KEY", "")
	if len(key) != 32 {
		collect(errors.New("PASETO_SECRET_KEY must be 32 characters long"))
	}
	cfg.PasetoSecretKey = []byte(key)

	var err error
	cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour)
	collect(err)
	cfg.RedisDB, err = getInt("REDIS_DB", 0)
	collect(err)
	cfg.SMTPPort, err = getInt("SMTP_PORT", 587)
	collect(err)
	cfg.MinioUseSSL, err = getBool("MINIO_USE_SSL", false)
	collect(err)
	cfg.FreeShippingThreshold, err = getFloat("FREE_SHIPPING_THRESHOLD", 100)
	collect(err)
	cfg.ShippingFlatRate, err = getFloat("SHIPPING_FLAT_RATE", 10)
	collect(err)

	if cfg.MediaBackend != "cloudinary" && cfg.MediaBackend != "minio" {
		collect(fmt.Errorf("MEDIA_BACKEND must be cloudinary or minio, got %q", cfg.MediaBackend))
	}
	if cfg.MediaBackend == "minio" && cfg.MinioEndpoint == "" {
		collect(errors.New("MEDIA_BACKEND 'minio' but MINIO_ENDPOINT is not set"))
	}

	if cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret == "" {
		collect(errors.New("STRIPE_SECRET_KEY is set but STRIPE_WEBHOOK_SECRET is not"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (cfg *AppConfig) IsProduction() bool { return cfg.Env == "production" }

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, def int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return def, fmt.Errorf("%s: must be a non-negative number", key)
	}
	return f, nil
}

func getBool(key string, def bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
