package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"modestblooming-backend/middleware"
	"modestblooming-backend/models"
)

const maxWebhookBytes = int64(65536)

// Checkout membuat pesanan dari keranjang pengguna.
func (ctrl *Controller) Checkout(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)
	var user models.User
	err := ctrl.DB.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User no longer exists"})
		return
	}
	if err != nil {
		fail(c, err, "Failed to place order")
		return
	}

	order, clientSecret, err := ctrl.Orders.Checkout(ctx, userID, user.Email, req.ShippingAddress)
	if err != nil {
		fail(c, err, "Failed to place order")
		return
	}

	resp := gin.H{"order": order}
	if clientSecret != "" {
		resp["clientSecret"] = clientSecret
	}
	c.JSON(http.StatusCreated, resp)
}

// GetMyOrders mengembalikan riwayat pesanan pengguna, terbaru lebih dulu.
func (ctrl *Controller) GetMyOrders(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	list, err := ctrl.Orders.ForUser(ctx, middleware.UserID(c))
	if err != nil {
		fail(c, err, "Failed to load orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// GetOrder mengambil satu pesanan. Pesanan milik orang lain dianggap tidak ada.
func (ctrl *Controller) GetOrder(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	order, err := ctrl.Orders.Get(ctx, c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		fail(c, err, "Failed to load order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// AdminListOrders menampilkan semua pesanan untuk admin, bisa difilter per status.
func (ctrl *Controller) AdminListOrders(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	res, err := ctrl.Orders.List(ctx, c.Query("status"), page, limit)
	if err != nil {
		fail(c, err, "Failed to load orders")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctrl *Controller) UpdateOrderStatus(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.OrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := ctrl.Orders.UpdateStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		fail(c, err, "Failed to update order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// PaymentWebhook menerima notifikasi pembayaran dari Stripe.
func (ctrl *Controller) PaymentWebhook(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if err := ctrl.Orders.HandlePaymentEvent(ctx, payload, c.GetHeader("Stripe-Signature")); err != nil {
		fail(c, err, "Failed to process payment event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
