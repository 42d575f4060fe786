package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"modestblooming-backend/catalog"
	"modestblooming-backend/models"
)

// GetProducts mengembalikan daftar produk dengan paginasi.
func (ctrl *Controller) GetProducts(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := ctrl.Catalog.List(ctx, catalog.ParseFilter(c.Request.URL.Query()))
	if err != nil {
		fail(c, err, "Failed to load products")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products":   res.Items,
		"totalPages": res.TotalPages,
		"total":      res.Total,
		"page":       res.Page,
	})
}

// FilterProducts sama dengan GetProducts, tetapi hasilnya di bawah key "items".
func (ctrl *Controller) FilterProducts(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := ctrl.Catalog.List(ctx, catalog.ParseFilter(c.Request.URL.Query()))
	if err != nil {
		fail(c, err, "Failed to filter products")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":      res.Items,
		"totalPages": res.TotalPages,
		"total":      res.Total,
		"page":       res.Page,
	})
}

// GetFilterOptions mengembalikan nilai yang tersedia untuk setiap filter.
func (ctrl *Controller) GetFilterOptions(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	opts, err := ctrl.Catalog.Options(ctx)
	if err != nil {
		fail(c, err, "Failed to load filter options")
		return
	}
	c.JSON(http.StatusOK, opts)
}

func (ctrl *Controller) GetProductBySlug(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	product, err := ctrl.Catalog.BySlug(ctx, c.Param("slug"))
	if err != nil {
		fail(c, err, "Failed to load product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// GetProduct mengambil satu produk berdasarkan ID.
func (ctrl *Controller) GetProduct(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	product, err := ctrl.Catalog.ByID(ctx, c.Param("id"))
	if err != nil {
		fail(c, err, "Failed to load product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (ctrl *Controller) SearchProducts(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	products, err := ctrl.Catalog.Search(ctx, c.Query("q"))
	if err != nil {
		fail(c, err, "Search failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// CreateProduct menangani pembuatan produk baru oleh admin.
func (ctrl *Controller) CreateProduct(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var input models.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := ctrl.Catalog.Create(ctx, input)
	if err != nil {
		fail(c, err, "Failed to create product")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct menangani pembaruan produk.
func (ctrl *Controller) UpdateProduct(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var input models.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := ctrl.Catalog.Update(ctx, c.Param("id"), input)
	if err != nil {
		fail(c, err, "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct menghapus produk beserta gambarnya.
func (ctrl *Controller) DeleteProduct(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := ctrl.Catalog.Delete(ctx, c.Param("id")); err != nil {
		fail(c, err, "Failed to delete product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// CloneProduct membuat produk baru dari produk lain dengan satu varian warna baru.
func (ctrl *Controller) CloneProduct(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var input models.CloneInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := ctrl.Catalog.Clone(ctx, c.Param("id"), input)
	if err != nil {
		fail(c, err, "Failed to clone product")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}
