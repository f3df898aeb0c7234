package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/validator"
)

// ProductServiceConfig tunes the fallback behaviour of ProductService.
type ProductServiceConfig struct {
	// SeedSamples fills a never-written mirror with the sample catalog the
	// first time it is needed.
	SeedSamples bool
	// RemoteTimeout bounds each call to the remote store. Zero means no bound
	// beyond the caller's context.
	RemoteTimeout time.Duration
	// Instance identifies this process in published events.
	Instance string
}

// ProductService is the single entry point for product reads and writes.
// The remote store is the system of record; the mirror answers list reads
// while the remote is unreachable and absorbs writes that could not reach it.
type ProductService struct {
	store     repositories.ProductStore
	mirror    repositories.ProductMirror
	publisher EventPublisher
	cfg       ProductServiceConfig
	now       func() time.Time

	// mirrorMu serializes read-modify-write cycles on the mirror slot.
	mirrorMu sync.Mutex
}

// NewProductService creates a new ProductService. publisher may be nil.
func NewProductService(store repositories.ProductStore, mirror repositories.ProductMirror, publisher EventPublisher, cfg ProductServiceConfig) *ProductService {
	return &ProductService{
		store:     store,
		mirror:    mirror,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *ProductService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *ProductService) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RemoteTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RemoteTimeout)
	}
	return context.WithCancel(ctx)
}

// List returns all products, newest first. It never fails: when the remote
// store cannot be read the mirror contents are returned as they are.
func (s *ProductService) List(ctx context.Context) []models.Product {
	products, err := s.refresh(ctx)
	if err != nil {
		log.Printf("Error listing products from remote store, using local mirror: %v", err)
		return s.mirrorProducts(ctx)
	}
	return products
}

// ListByCategory is List restricted to one category.
func (s *ProductService) ListByCategory(ctx context.Context, category string) []models.Product {
	all := s.List(ctx)
	if category == "" {
		return all
	}
	filtered := make([]models.Product, 0, len(all))
	for _, p := range all {
		if p.Category == category {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// RefreshMirror reads the remote list and overwrites the mirror with it.
// Unlike List, it reports remote failures.
func (s *ProductService) RefreshMirror(ctx context.Context) error {
	_, err := s.refresh(ctx)
	return err
}

func (s *ProductService) refresh(ctx context.Context) ([]models.Product, error) {
	remoteCtx, cancel := s.remoteContext(ctx)
	defer cancel()

	products, err := s.store.List(remoteCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrRemoteUnavailable, err)
	}
	for i := range products {
		products[i].Normalize()
	}

	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()
	if err := s.mirror.Save(ctx, products); err != nil {
		log.Printf("Warning: failed to sync local mirror with %d products: %v", len(products), err)
	}
	return products, nil
}

func (s *ProductService) mirrorProducts(ctx context.Context) []models.Product {
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()

	products, err := s.seedMirror(ctx)
	if err != nil {
		if errors.Is(err, models.ErrMalformedMirror) {
			log.Printf("Warning: invalid local mirror data, returning empty list: %v", err)
		} else {
			log.Printf("Error reading local mirror: %v", err)
		}
		return []models.Product{}
	}
	return products
}

// seedMirror fills a never-written mirror with the sample catalog when
// seeding is enabled, and returns the mirror contents. Callers hold mirrorMu.
func (s *ProductService) seedMirror(ctx context.Context) ([]models.Product, error) {
	products, seeded, err := s.mirror.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !seeded && s.cfg.SeedSamples {
		products = models.SampleProducts(s.now())
		if err := s.mirror.Save(ctx, products); err != nil {
			log.Printf("Warning: failed to seed local mirror: %v", err)
		}
	}
	return products, nil
}

// Get reads a product from the remote store. There is no mirror fallback.
func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	remoteCtx, cancel := s.remoteContext(ctx)
	defer cancel()

	product, err := s.store.Get(remoteCtx, id)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrRemoteUnavailable, err)
	}
	product.Normalize()
	return product, nil
}

// Create stores a new product. When the remote store rejects the write for
// any reason other than validation, the product still gets a local id and is
// kept in the mirror; the result then reports Synced false.
func (s *ProductService) Create(ctx context.Context, input models.Product) (models.WriteResult, error) {
	product := input.Clone()
	product.ID = ""
	product.Normalize()
	product.ApplyDefaults()
	if err := validator.Error(validator.ValidateStruct(product)); err != nil {
		return models.WriteResult{}, err
	}
	now := models.Timestamp(s.now())
	product.CreatedAt = now
	product.UpdatedAt = now

	remoteCtx, cancel := s.remoteContext(ctx)
	id, remoteErr := s.store.Insert(remoteCtx, &product)
	cancel()

	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()

	if remoteErr != nil {
		log.Printf("Error adding product %q to remote store, keeping it locally: %v", product.Name, remoteErr)
		s.seedMirror(ctx)
		id = s.localID(ctx, now)
	}
	product.ID = id

	if err := s.mirrorPut(ctx, product); err != nil {
		if remoteErr != nil {
			return models.WriteResult{}, fmt.Errorf("%w: %w (local mirror: %v)", models.ErrRemoteUnavailable, remoteErr, err)
		}
		log.Printf("Warning: failed to add product %s to local mirror: %v", id, err)
	}

	result := models.WriteResult{ID: id, Synced: remoteErr == nil}
	s.publish(models.EventProductCreated, result)
	return result, nil
}

// localID derives an id from the Unix millisecond clock, stepping forward
// past ids the mirror already holds. Callers hold mirrorMu.
func (s *ProductService) localID(ctx context.Context, at time.Time) string {
	taken := map[string]struct{}{}
	if products, _, err := s.mirror.Load(ctx); err == nil {
		for _, p := range products {
			taken[p.ID] = struct{}{}
		}
	}
	ms := at.UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if _, ok := taken[id]; !ok {
			return id
		}
		ms++
	}
}

// Update merges patch into the product and refreshes UpdatedAt. If the remote
// store is unreachable the merge is applied to the mirror copy only and the
// result reports Synced false. An empty patch is rejected.
func (s *ProductService) Update(ctx context.Context, id string, patch models.ProductPatch) (models.WriteResult, error) {
	if patch.IsEmpty() {
		return models.WriteResult{}, fmt.Errorf("%w: no fields to update", models.ErrInvalidProduct)
	}
	if err := validator.Error(validator.ValidateStruct(patch)); err != nil {
		return models.WriteResult{}, err
	}

	merged, remoteErr := s.updateRemote(ctx, id, patch)
	if errors.Is(remoteErr, models.ErrProductNotFound) {
		return models.WriteResult{}, remoteErr
	}

	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()

	if merged == nil {
		log.Printf("Error reading product %s from remote store, updating local mirror only: %v", id, remoteErr)
		s.seedMirror(ctx)
		current, err := s.mirrorFind(ctx, id)
		if err != nil {
			return models.WriteResult{}, fmt.Errorf("%w: %w (local mirror: %v)", models.ErrRemoteUnavailable, remoteErr, err)
		}
		next := current.Clone()
		patch.Apply(&next)
		next.UpdatedAt = s.nextStamp(current.UpdatedAt)
		merged = &next
	}

	if err := s.mirrorPut(ctx, *merged); err != nil {
		if remoteErr != nil {
			return models.WriteResult{}, fmt.Errorf("%w: %w (local mirror: %v)", models.ErrRemoteUnavailable, remoteErr, err)
		}
		log.Printf("Warning: failed to update product %s in local mirror: %v", id, err)
	}

	result := models.WriteResult{ID: id, Synced: remoteErr == nil}
	s.publish(models.EventProductUpdated, result)
	return result, nil
}

// updateRemote applies patch at the remote store without touching the mirror.
// It returns the merged product whenever the remote copy could be read, even
// if the write itself then failed; a nil product means the read failed.
func (s *ProductService) updateRemote(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	remoteCtx, cancel := s.remoteContext(ctx)
	defer cancel()

	current, err := s.store.Get(remoteCtx, id)
	if err != nil {
		return nil, err
	}
	merged := current.Clone()
	patch.Apply(&merged)
	merged.UpdatedAt = s.nextStamp(current.UpdatedAt)

	if err := s.store.Update(remoteCtx, id, patch, merged.UpdatedAt); err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return nil, err
		}
		log.Printf("Error updating product %s in remote store, updating local mirror only: %v", id, err)
		return &merged, err
	}
	return &merged, nil
}

// nextStamp returns the current time, moved past prev when the clock has not
// advanced beyond it.
func (s *ProductService) nextStamp(prev time.Time) time.Time {
	now := models.Timestamp(s.now())
	if !now.After(prev) {
		now = models.Timestamp(prev).Add(time.Millisecond)
	}
	return now
}

// Delete removes the product from the remote store and then from the mirror.
// A remote failure leaves both untouched and is returned.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	remoteCtx, cancel := s.remoteContext(ctx)
	defer cancel()

	err := s.store.Delete(remoteCtx, id)
	if err != nil && !errors.Is(err, models.ErrProductNotFound) {
		return fmt.Errorf("%w: %w", models.ErrRemoteUnavailable, err)
	}

	s.mirrorMu.Lock()
	if mirrorErr := s.mirrorRemove(ctx, id); mirrorErr != nil {
		log.Printf("Warning: failed to remove product %s from local mirror: %v", id, mirrorErr)
	}
	s.mirrorMu.Unlock()

	if err != nil {
		return err
	}
	s.publish(models.EventProductDeleted, models.WriteResult{ID: id, Synced: true})
	return nil
}

// mirrorLoad reads the mirror for modification; a malformed slot starts over
// empty. Callers hold mirrorMu.
func (s *ProductService) mirrorLoad(ctx context.Context) ([]models.Product, error) {
	products, _, err := s.mirror.Load(ctx)
	if err != nil {
		if errors.Is(err, models.ErrMalformedMirror) {
			log.Printf("Warning: discarding invalid local mirror data: %v", err)
			return []models.Product{}, nil
		}
		return nil, err
	}
	return products, nil
}

func (s *ProductService) mirrorFind(ctx context.Context, id string) (*models.Product, error) {
	products, err := s.mirrorLoad(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.ID == id {
			out := p.Clone()
			return &out, nil
		}
	}
	return nil, fmt.Errorf("product with ID %s: %w", id, models.ErrProductNotFound)
}

// mirrorPut replaces the product in place, or inserts it keeping the list
// ordered by CreatedAt descending. Callers hold mirrorMu.
func (s *ProductService) mirrorPut(ctx context.Context, product models.Product) error {
	products, err := s.mirrorLoad(ctx)
	if err != nil {
		return err
	}
	for i := range products {
		if products[i].ID == product.ID {
			products[i] = product
			return s.mirror.Save(ctx, products)
		}
	}
	at := sort.Search(len(products), func(i int) bool {
		return !products[i].CreatedAt.After(product.CreatedAt)
	})
	products = append(products, models.Product{})
	copy(products[at+1:], products[at:])
	products[at] = product
	return s.mirror.Save(ctx, products)
}

// mirrorRemove drops the product from the mirror. Callers hold mirrorMu.
func (s *ProductService) mirrorRemove(ctx context.Context, id string) error {
	products, err := s.mirrorLoad(ctx)
	if err != nil {
		return err
	}
	kept := products[:0]
	for _, p := range products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(products) {
		return nil
	}
	return s.mirror.Save(ctx, kept)
}

func (s *ProductService) publish(eventType string, result models.WriteResult) {
	if s.publisher == nil {
		return
	}
	event := models.ProductEvent{
		Type:      eventType,
		ProductID: result.ID,
		Synced:    result.Synced,
		Instance:  s.cfg.Instance,
		At:        models.Timestamp(s.now()),
	}
	if err := s.publisher.PublishProductEvent(event); err != nil {
		log.Printf("Warning: failed to dispatch %s event for product %s: %v", eventType, result.ID, err)
	}
}
