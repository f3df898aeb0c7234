package repositories

import (
	"context"
	"io"
	"time"

	"storefront/internal/models"
)

// ProductStore is the remote system of record for products.
// Implementations return models.ErrProductNotFound for unknown ids.
type ProductStore interface {
	// List returns every product, most recently created first.
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	// Insert persists product and returns the id assigned by the store.
	Insert(ctx context.Context, product *models.Product) (string, error)
	Update(ctx context.Context, id string, patch models.ProductPatch, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// ProductMirror is the local durable copy of the whole product list, kept in
// a single slot that is read and overwritten as a unit.
type ProductMirror interface {
	// Load returns the stored list. seeded is false when the slot has never
	// been written. A slot that does not decode yields models.ErrMalformedMirror.
	Load(ctx context.Context) (products []models.Product, seeded bool, err error)
	Save(ctx context.Context, products []models.Product) error
}

// ImageStore keeps binary image objects addressed by path.
type ImageStore interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, path string) error
}

// MirrorSlot is the name of the slot holding the product list.
const MirrorSlot = "storefront-products"
