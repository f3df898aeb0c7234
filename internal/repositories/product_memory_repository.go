package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// ErrStoreOffline is returned by MemoryProductStore while it is set offline.
var ErrStoreOffline = errors.New("memory store offline")

// MemoryProductStore is an in-memory implementation of ProductStore.
// SetOffline makes every call fail, which is how the fallback paths are
// exercised in tests and in local development.
type MemoryProductStore struct {
	products map[string]models.Product
	offline  bool
	mu       sync.RWMutex
}

// NewMemoryProductStore creates a new instance of MemoryProductStore.
func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{
		products: make(map[string]models.Product),
	}
}

// SetOffline toggles simulated unavailability.
func (r *MemoryProductStore) SetOffline(offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = offline
}

// List returns all products, newest first.
func (r *MemoryProductStore) List(ctx context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		productList = append(productList, p.Clone())
	}
	sort.SliceStable(productList, func(i, j int) bool {
		if productList[i].CreatedAt.Equal(productList[j].CreatedAt) {
			return productList[i].ID > productList[j].ID
		}
		return productList[i].CreatedAt.After(productList[j].CreatedAt)
	})
	return productList, nil
}

// Get returns a product by its ID.
func (r *MemoryProductStore) Get(ctx context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, models.ErrProductNotFound)
	}
	out := product.Clone()
	return &out, nil
}

// Insert adds a new product under a fresh UUID.
func (r *MemoryProductStore) Insert(ctx context.Context, product *models.Product) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return "", err
	}

	stored := product.Clone()
	stored.ID = uuid.New().String()
	r.products[stored.ID] = stored
	return stored.ID, nil
}

// Update merges patch into an existing product.
func (r *MemoryProductStore) Update(ctx context.Context, id string, patch models.ProductPatch, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return err
	}

	product, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product with ID %s not found for update: %w", id, models.ErrProductNotFound)
	}
	patch.Apply(&product)
	product.UpdatedAt = updatedAt
	r.products[id] = product
	return nil
}

// Delete removes a product by its ID.
func (r *MemoryProductStore) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return err
	}

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product with ID %s not found for deletion: %w", id, models.ErrProductNotFound)
	}
	delete(r.products, id)
	return nil
}

func (r *MemoryProductStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.offline {
		return ErrStoreOffline
	}
	return nil
}
