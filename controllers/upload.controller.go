package controllers

import (
	"errors"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"modestblooming-backend/services"
)

// UploadImage menerima field multipart "image" dan meneruskannya ke media host.
func (ctrl *Controller) UploadImage(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	if ctrl.Media == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image upload is not configured"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxImageSize+1<<20)
	file, err := c.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": services.ErrImageTooLarge.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded. Please select an image file."})
		return
	}

	if err := services.CheckImage(file.Filename, file.Size); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrImageTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	f, err := file.Open()
	if err != nil {
		fail(c, err, "Failed to read upload")
		return
	}
	defer f.Close()

	media, err := ctrl.Media.Upload(ctx, f, uuid.NewString()+path.Ext(file.Filename))
	if err != nil {
		fail(c, err, "Failed to upload image")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": media.URL, "publicId": media.PublicID})
}
