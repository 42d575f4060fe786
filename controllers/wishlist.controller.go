package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"modestblooming-backend/middleware"
	"modestblooming-backend/models"
)

func (ctrl *Controller) GetWishlist(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	products, err := ctrl.Carts.Wishlist(ctx, middleware.UserID(c))
	if err != nil {
		fail(c, err, "Failed to load wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// AddWishlist menambahkan produk ke wishlist. Produk yang sudah ada diabaikan.
func (ctrl *Controller) AddWishlist(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.WishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	products, err := ctrl.Carts.AddWish(ctx, middleware.UserID(c), req.ProductID)
	if err != nil {
		fail(c, err, "Failed to update wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (ctrl *Controller) RemoveWishlist(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	products, err := ctrl.Carts.RemoveWish(ctx, middleware.UserID(c), c.Param("productId"))
	if err != nil {
		fail(c, err, "Failed to update wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// SyncWishlist menggabungkan wishlist tamu ke wishlist akun.
func (ctrl *Controller) SyncWishlist(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.WishlistSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	products, err := ctrl.Carts.SyncWishlist(ctx, middleware.UserID(c), req.ProductIDs)
	if err != nil {
		fail(c, err, "Failed to sync wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}
