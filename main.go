package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"modestblooming-backend/cart"
	"modestblooming-backend/catalog"
	"modestblooming-backend/config"
	"modestblooming-backend/controllers"
	"modestblooming-backend/orders"
	"modestblooming-backend/routes"
	"modestblooming-backend/services"
)

const closeTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	log := config.NewLogger(cfg)
	slog.SetDefault(log)

	client, err := config.ConnectDB(sigCtx, cfg.MongoURI, cfg.MongoMode)
	if err != nil {
		return err
	}
	defer disconnect(client)

	db := client.Database(cfg.MongoDB)
	if err := config.EnsureIndexes(sigCtx, db); err != nil {
		return err
	}
	if err := config.EnsureAdmin(sigCtx, db, cfg.AdminEmail); err != nil {
		return err
	}

	rdb, err := config.ConnectRedis(sigCtx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}
	cache := services.NewCache(rdb)

	media, err := newMediaHost(sigCtx, cfg)
	if err != nil {
		return err
	}

	tokens, err := services.NewTokenMaker(cfg.PasetoSecretKey, cfg.TokenTTL)
	if err != nil {
		return err
	}

	var mailer services.Mailer = &services.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = services.NewSMTPMailer(services.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	} else {
		log.Warn("SMTP_HOST not set, emails are only logged")
	}

	var payments orders.Payments
	if cfg.StripeSecretKey != "" {
		payments = services.NewStripePayments(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, checkout runs without payment intents")
	}

	catalogOpts := []catalog.Option{catalog.WithCache(cache)}
	if media != nil {
		catalogOpts = append(catalogOpts, catalog.WithMedia(media))
	}
	es, err := config.NewElastic(cfg)
	if err != nil {
		return err
	}
	if es != nil {
		catalogOpts = append(catalogOpts, catalog.WithSearcher(services.NewElasticSearcher(es, cfg.ElasticIndex)))
	}

	productStore := catalog.NewMongoStore(db)
	cartStore := cart.NewMongoStore(db)

	ctrl := &controllers.Controller{
		DB:      db,
		Catalog: catalog.NewService(productStore, catalogOpts...),
		Carts:   cart.NewService(cartStore, productStore, cache),
		Orders: orders.NewService(orders.NewMongoStore(db), cartStore, productStore, payments, mailer, orders.Config{
			Shipping: orders.ShippingRules{
				FreeThreshold: cfg.FreeShippingThreshold,
				FlatRate:      cfg.ShippingFlatRate,
			},
			Currency: cfg.Currency,
		}),
		Tokens:      tokens,
		Cache:       cache,
		Mailer:      mailer,
		Media:       media,
		FrontendURL: cfg.FrontendURL,
		AdminEmail:  cfg.AdminEmail,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.Setup(ctrl, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-sigCtx.Done():
	}

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newMediaHost returns a nil interface when no image store is configured.
func newMediaHost(ctx context.Context, cfg *config.AppConfig) (catalog.MediaHost, error) {
	if cfg.MediaBackend == "minio" {
		client, err := config.NewMinio(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return services.NewMinioHost(client, cfg.MinioBucket, config.MinioPublicBase(cfg)), nil
	}

	cld, err := config.NewCloudinary(cfg)
	if err != nil || cld == nil {
		return nil, err
	}
	return services.NewCloudinaryHost(cld, cfg.CloudinaryFolder), nil
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		slog.Warn("mongo disconnect", "err", err)
	}
}
