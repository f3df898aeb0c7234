package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/url"

	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DefaultMaxImageBytes caps an uploaded image when no limit is configured.
const DefaultMaxImageBytes = 10 << 20

// ImageHandler handles image upload, removal and serving.
type ImageHandler struct {
	service  *services.ImageService
	maxBytes int64
}

// NewImageHandler creates a new ImageHandler. maxBytes <= 0 selects
// DefaultMaxImageBytes.
func NewImageHandler(service *services.ImageService, maxBytes int64) *ImageHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageHandler{
		service:  service,
		maxBytes: maxBytes,
	}
}

// RegisterPublicRoutes registers GET /images/* on router.
func (h *ImageHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Get("/images/*", h.HandleServeImage)
}

// RegisterAdminRoutes registers the upload and delete routes. It must run
// before ProductHandler.RegisterAdminRoutes so /products/images is not taken
// for a product id.
func (h *ImageHandler) RegisterAdminRoutes(router fiber.Router) {
	imageRoutes := router.Group("/products/images")
	imageRoutes.Post("/", h.HandleUploadImage)
	imageRoutes.Delete("/", h.HandleDeleteImage)
}

// HandleUploadImage stores the multipart "file" field and returns its locator.
func (h *ImageHandler) HandleUploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Multipart field 'file' is required",
			"error":   err.Error(),
		})
	}
	if file.Size > h.maxBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"message": fmt.Sprintf("Image exceeds %d bytes", h.maxBytes),
		})
	}

	f, err := file.Open()
	if err != nil {
		log.Printf("Error opening uploaded file %s: %v", file.Filename, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read uploaded file",
			"error":   err.Error(),
		})
	}
	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes))
	f.Close()
	if err != nil {
		log.Printf("Error reading uploaded file %s: %v", file.Filename, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read uploaded file",
			"error":   err.Error(),
		})
	}

	// The upload may outlive this request on timeout; the multipart file does not.
	contentType := file.Header.Get(fiber.HeaderContentType)
	locator, err := h.service.Upload(c.UserContext(), bytes.NewReader(data), file.Filename, contentType, c.FormValue("productId"))
	if err != nil {
		return errorResponse(c, "Could not upload image", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"url": locator,
	})
}

// HandleDeleteImage removes the image named by ?url=.
func (h *ImageHandler) HandleDeleteImage(c *fiber.Ctx) error {
	locator, err := url.QueryUnescape(c.Query("url"))
	if err != nil || locator == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Query parameter 'url' is required",
		})
	}

	if err := h.service.Delete(c.UserContext(), locator); err != nil {
		log.Printf("Error deleting image %s: %v", locator, err)
		status := statusFor(err)
		if status == fiber.StatusInternalServerError {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(fiber.Map{
			"message": "Could not delete image",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Image deleted",
	})
}

// HandleServeImage streams a stored image.
func (h *ImageHandler) HandleServeImage(c *fiber.Ctx) error {
	path, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	rc, contentType, err := h.service.Open(c.UserContext(), path)
	if err != nil {
		status := statusFor(err)
		if status == fiber.StatusInternalServerError {
			log.Printf("Error opening image %s: %v", path, err)
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(fiber.Map{
			"message": "Could not load image",
			"error":   err.Error(),
		})
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	// fasthttp closes rc once the body has been written.
	return c.SendStream(rc)
}
