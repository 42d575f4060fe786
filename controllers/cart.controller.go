package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"modestblooming-backend/middleware"
	"modestblooming-backend/models"
)

// GetCart mengembalikan keranjang pengguna dengan harga terkini.
func (ctrl *Controller) GetCart(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	view, err := ctrl.Carts.Get(ctx, middleware.UserID(c))
	if err != nil {
		fail(c, err, "Failed to load cart")
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddCartItem menambahkan produk ke keranjang.
func (ctrl *Controller) AddCartItem(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := ctrl.Carts.Add(ctx, middleware.UserID(c), req)
	if err != nil {
		fail(c, err, "Failed to add item to cart")
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateCartItem mengubah jumlah satu baris. Jumlah 0 menghapus baris tersebut.
func (ctrl *Controller) UpdateCartItem(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.CartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := ctrl.Carts.Update(ctx, middleware.UserID(c), c.Param("productId"), req.Color, req.Quantity)
	if err != nil {
		fail(c, err, "Failed to update cart")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (ctrl *Controller) RemoveCartItem(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	view, err := ctrl.Carts.Remove(ctx, middleware.UserID(c), c.Param("productId"), c.Query("color"))
	if err != nil {
		fail(c, err, "Failed to remove item from cart")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (ctrl *Controller) ClearCart(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := ctrl.Carts.Clear(ctx, middleware.UserID(c)); err != nil {
		fail(c, err, "Failed to clear cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// SyncCart menggabungkan keranjang tamu dari browser ke keranjang akun.
func (ctrl *Controller) SyncCart(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.CartSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := ctrl.Carts.Sync(ctx, middleware.UserID(c), req.Items)
	if err != nil {
		fail(c, err, "Failed to sync cart")
		return
	}
	c.JSON(http.StatusOK, view)
}
