package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"modestblooming-backend/cart"
	"modestblooming-backend/catalog"
	"modestblooming-backend/orders"
	"modestblooming-backend/services"
)

const requestTimeout = 10 * time.Second

// Controller menampung dependensi yang akan digunakan oleh semua handler.
type Controller struct {
	DB      *mongo.Database
	Catalog *catalog.Service
	Carts   *cart.Service
	Orders  *orders.Service
	Tokens  *services.TokenMaker
	Cache   *services.Cache
	Mailer  services.Mailer
	Media   catalog.MediaHost

	// FrontendURL dipakai untuk membentuk tautan di email.
	FrontendURL string
	// AdminEmail langsung menjadi admin saat mendaftar.
	AdminEmail string
}

// requestCtx mengikat operasi database ke request, sehingga request yang
// dibatalkan klien ikut menghentikan query.
func requestCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// statusFor memetakan error domain ke status HTTP.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, catalog.ErrInvalidID),
		errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, catalog.ErrInvalidDiscount),
		errors.Is(err, catalog.ErrUnknownColor),
		errors.Is(err, orders.ErrInvalidID),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, services.ErrBadSignature):
		return http.StatusBadRequest, true
	case errors.Is(err, catalog.ErrSlugTaken),
		errors.Is(err, orders.ErrUnavailable),
		errors.Is(err, orders.ErrInvalidTransition):
		return http.StatusConflict, true
	case errors.Is(err, orders.ErrPaymentsDisabled),
		errors.Is(err, services.ErrWebhookNotConfigured):
		return http.StatusServiceUnavailable, true
	case errors.Is(err, context.Canceled):
		// Klien sudah pergi; status ini tidak akan terbaca.
		return 499, false
	}
	return http.StatusInternalServerError, false
}

// fail menulis error JSON. Error yang tidak dikenal dicatat dan diganti pesan umum.
func fail(c *gin.Context, err error, fallback string) {
	status, known := statusFor(err)
	if known {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if status == http.StatusInternalServerError {
		slog.Error(fallback, "path", c.FullPath(), "err", err)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": fallback})
}
