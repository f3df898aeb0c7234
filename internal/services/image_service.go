package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
)

// ImageFailurePolicy decides what an upload returns when storage fails.
type ImageFailurePolicy string

const (
	// ImagePolicyStrict returns the failure to the caller.
	ImagePolicyStrict ImageFailurePolicy = "strict"
	// ImagePolicyPlaceholder logs the failure and returns a placeholder locator.
	ImagePolicyPlaceholder ImageFailurePolicy = "placeholder"
)

// ParseImageFailurePolicy validates a configured policy name.
func ParseImageFailurePolicy(name string) (ImageFailurePolicy, error) {
	switch p := ImageFailurePolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case ImagePolicyStrict, ImagePolicyPlaceholder:
		return p, nil
	default:
		return "", fmt.Errorf("unknown image failure policy %q (want %q or %q)", name, ImagePolicyStrict, ImagePolicyPlaceholder)
	}
}

// PlaceholderImages are the locators handed out under ImagePolicyPlaceholder.
var PlaceholderImages = []string{
	"https://images.pexels.com/photos/6786894/pexels-photo-6786894.jpeg?auto=compress&cs=tinysrgb&w=800",
	"https://images.pexels.com/photos/3253490/pexels-photo-3253490.jpeg?auto=compress&cs=tinysrgb&w=800",
	"https://images.pexels.com/photos/6276009/pexels-photo-6276009.jpeg?auto=compress&cs=tinysrgb&w=800",
	"https://images.pexels.com/photos/10481315/pexels-photo-10481315.jpeg?auto=compress&cs=tinysrgb&w=800",
}

const DefaultUploadTimeout = 30 * time.Second

// ImageServiceConfig configures ImageService.
type ImageServiceConfig struct {
	// PublicBaseURL prefixes every locator, e.g. https://shop.example.com.
	PublicBaseURL string
	UploadTimeout time.Duration
	FailurePolicy ImageFailurePolicy
}

// ImageService stores product images and turns storage paths into public
// locators served under /images/.
type ImageService struct {
	store repositories.ImageStore
	cfg   ImageServiceConfig
	now   func() time.Time
	pick  func(n int) int
}

// NewImageService creates a new ImageService.
func NewImageService(store repositories.ImageStore, cfg ImageServiceConfig) *ImageService {
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = ImagePolicyStrict
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &ImageService{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		pick:  rand.Intn,
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeFilename replaces every character outside [a-zA-Z0-9.-] with '_'.
func SanitizeFilename(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// ObjectPath builds products/{productID}/{unixMillis}_{filename}.
func ObjectPath(productID, filename string, at time.Time) string {
	return fmt.Sprintf("products/%s/%d_%s", SanitizeFilename(productID), at.UnixMilli(), SanitizeFilename(filename))
}

// URL returns the public locator of path.
func (s *ImageService) URL(path string) string {
	return s.cfg.PublicBaseURL + "/images/" + path
}

// PathFromLocator reverses URL.
func (s *ImageService) PathFromLocator(locator string) (string, error) {
	prefix := s.cfg.PublicBaseURL + "/images/"
	if !strings.HasPrefix(locator, prefix) {
		return "", fmt.Errorf("%s: %w", locator, models.ErrInvalidLocator)
	}
	path := strings.TrimPrefix(locator, prefix)
	if path == "" || strings.Contains(path, "..") {
		return "", fmt.Errorf("%s: %w", locator, models.ErrInvalidLocator)
	}
	return path, nil
}

// Upload stores r as an image of productID and returns its locator. An empty
// productID stands for a product that does not exist yet. The write is bounded
// by the upload timeout and is not cancelled when ctx is. On timeout the store
// may still be reading r after Upload returns, so r must stay valid on its own.
func (s *ImageService) Upload(ctx context.Context, r io.Reader, filename, contentType, productID string) (string, error) {
	if productID == "" {
		productID = "tmp-" + uuid.New().String()
	}
	path := ObjectPath(productID, filename, s.now())

	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.UploadTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.store.Put(uploadCtx, path, r, contentType)
	}()

	var err error
	select {
	case err = <-done:
	case <-uploadCtx.Done():
		select {
		case err = <-done:
		default:
			err = uploadCtx.Err()
		}
	}
	if err != nil {
		if errors.Is(uploadCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %v", models.ErrUploadTimeout, s.cfg.UploadTimeout, err)
		} else {
			err = fmt.Errorf("%w: %w", models.ErrUploadFailed, err)
		}
		return s.uploadFailed(path, err)
	}

	locator := s.URL(path)
	log.Printf("Image uploaded: %s", locator)
	return locator, nil
}

func (s *ImageService) uploadFailed(path string, err error) (string, error) {
	if s.cfg.FailurePolicy != ImagePolicyPlaceholder {
		log.Printf("Image upload of %s failed: %v", path, err)
		return "", err
	}
	placeholder := PlaceholderImages[s.pick(len(PlaceholderImages))]
	log.Printf("Image upload of %s failed, substituting placeholder %s: %v", path, placeholder, err)
	return placeholder, nil
}

// Delete removes the object behind locator.
func (s *ImageService) Delete(ctx context.Context, locator string) error {
	path, err := s.PathFromLocator(locator)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, path); err != nil {
		return fmt.Errorf("failed to delete image %s: %w", locator, err)
	}
	return nil
}

// Open streams the object stored at path along with its content type.
func (s *ImageService) Open(ctx context.Context, path string) (io.ReadCloser, string, error) {
	if path == "" || strings.Contains(path, "..") {
		return nil, "", fmt.Errorf("%s: %w", path, models.ErrImageNotFound)
	}
	return s.store.Open(ctx, path)
}
