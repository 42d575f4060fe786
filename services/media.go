package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/minio/minio-go/v7"

	"modestblooming-backend/models"
)

// MaxImageSize is the largest image accepted for upload.
const MaxImageSize = 10 << 20

var allowedImageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

var (
	ErrImageTooLarge   = errors.New("image too large, maximum is 10MB")
	ErrImageExtension  = errors.New("image format not supported, use jpg, jpeg, png, gif or webp")
	errMediaNotEnabled = errors.New("media host not configured")
)

// CheckImage validates an upload by name and size before it is sent anywhere.
func CheckImage(filename string, size int64) error {
	if size > MaxImageSize {
		return ErrImageTooLarge
	}
	if !allowedImageExt[strings.ToLower(path.Ext(filename))] {
		return ErrImageExtension
	}
	return nil
}

// CloudinaryHost stores images on Cloudinary.
type CloudinaryHost struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryHost(cld *cloudinary.Cloudinary, folder string) *CloudinaryHost {
	return &CloudinaryHost{cld: cld, folder: folder}
}

func (h *CloudinaryHost) Upload(ctx context.Context, r io.Reader, filename string) (models.Media, error) {
	const op = "CloudinaryHost.Upload"
	if h == nil || h.cld == nil {
		return models.Media{}, errMediaNotEnabled
	}

	res, err := h.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   h.folder,
		PublicID: strings.TrimSuffix(filename, path.Ext(filename)),
	})
	if err != nil {
		return models.Media{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.Error.Message != "" {
		return models.Media{}, fmt.Errorf("%s: %s", op, res.Error.Message)
	}
	return models.Media{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func (h *CloudinaryHost) Destroy(ctx context.Context, publicID string) error {
	if h == nil || h.cld == nil {
		return errMediaNotEnabled
	}
	if _, err := h.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("CloudinaryHost.Destroy: %w", err)
	}
	return nil
}

// MinioHost stores images in an S3 compatible bucket.
type MinioHost struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioHost serves objects under baseURL, the public address of bucket.
func NewMinioHost(client *minio.Client, bucket, baseURL string) *MinioHost {
	return &MinioHost{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *MinioHost) Upload(ctx context.Context, r io.Reader, filename string) (models.Media, error) {
	const op = "MinioHost.Upload"
	if h == nil || h.client == nil {
		return models.Media{}, errMediaNotEnabled
	}

	name := "products/" + filename
	contentType := mime.TypeByExtension(path.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := h.client.PutObject(ctx, h.bucket, name, r, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return models.Media{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Media{URL: h.baseURL + "/products/" + url.PathEscape(filename), PublicID: name}, nil
}

func (h *MinioHost) Destroy(ctx context.Context, publicID string) error {
	if h == nil || h.client == nil {
		return errMediaNotEnabled
	}
	if err := h.client.RemoveObject(ctx, h.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("MinioHost.Destroy: %w", err)
	}
	return nil
}
