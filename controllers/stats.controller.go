package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"modestblooming-backend/models"
)

// HealthCheck memeriksa status koneksi database dan cache.
func (ctrl *Controller) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "connected"
	if err := ctrl.DB.Client().Ping(ctx, nil); err != nil {
		dbStatus = "disconnected"
	}

	cacheStatus := "disabled"
	if ctrl.Cache.Enabled() {
		cacheStatus = "connected"
		if err := ctrl.Cache.Ping(ctx); err != nil {
			cacheStatus = "disconnected"
		}
	}

	status, code := "ok", http.StatusOK
	if dbStatus != "connected" {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbStatus,
		"cache":     cacheStatus,
		"timestamp": time.Now().Unix(),
	})
}

// GetStats mengambil data statistik untuk dashboard admin.
func (ctrl *Controller) GetStats(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var stats models.Stats
	counts := []struct {
		dst    *int64
		coll   string
		filter bson.M
	}{
		{&stats.TotalProducts, "products", bson.M{}},
		{&stats.InStockProducts, "products", bson.M{"inStock": true}},
		{&stats.TotalUsers, "users", bson.M{}},
		{&stats.TotalOrders, "orders", bson.M{}},
		{&stats.PendingOrders, "orders", bson.M{"status": models.OrderPending}},
	}
	for _, q := range counts {
		n, err := ctrl.DB.Collection(q.coll).CountDocuments(ctx, q.filter)
		if err != nil {
			fail(c, err, "Failed to load stats")
			return
		}
		*q.dst = n
	}

	pipeline := []bson.M{
		{"$match": bson.M{"status": bson.M{"$in": []string{
			models.OrderPaid, models.OrderShipped, models.OrderDelivered,
		}}}},
		{"$group": bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$total"},
		}},
	}
	cursor, err := ctrl.DB.Collection("orders").Aggregate(ctx, pipeline)
	if err != nil {
		fail(c, err, "Failed to load stats")
		return
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		fail(c, err, "Failed to load stats")
		return
	}
	if len(result) > 0 {
		stats.Revenue = result[0].Total
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
