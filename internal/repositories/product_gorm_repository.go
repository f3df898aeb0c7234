package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// productRecord is the row layout of the products table. Ordered lists are
// kept in JSON columns so their order survives the round trip.
type productRecord struct {
	ID          string                            `gorm:"primaryKey;type:varchar(36)"`
	Name        string                            `gorm:"type:varchar(255);not null"`
	Price       float64                           `gorm:"not null"`
	Description string                            `gorm:"type:text"`
	Category    string                            `gorm:"type:varchar(50);index"`
	Sizes       datatypes.JSONSlice[string]       `gorm:"type:json"`
	Colors      datatypes.JSONSlice[models.Color] `gorm:"type:json"`
	Images      datatypes.JSONSlice[string]       `gorm:"type:json"`
	Features    datatypes.JSONSlice[string]       `gorm:"type:json"`
	Rating      *float64
	Reviews     *int
	CreatedAt   time.Time `gorm:"index;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

func (productRecord) TableName() string { return "products" }

func toRecord(p *models.Product) productRecord {
	return productRecord{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Category:    p.Category,
		Sizes:       datatypes.NewJSONSlice(p.Sizes),
		Colors:      datatypes.NewJSONSlice(p.Colors),
		Images:      datatypes.NewJSONSlice(p.Images),
		Features:    datatypes.NewJSONSlice(p.Features),
		Rating:      p.Rating,
		Reviews:     p.Reviews,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (rec productRecord) toModel() models.Product {
	p := models.Product{
		ID:          rec.ID,
		Name:        rec.Name,
		Price:       rec.Price,
		Description: rec.Description,
		Category:    rec.Category,
		Sizes:       []string(rec.Sizes),
		Colors:      []models.Color(rec.Colors),
		Images:      []string(rec.Images),
		Features:    []string(rec.Features),
		Rating:      rec.Rating,
		Reviews:     rec.Reviews,
		CreatedAt:   models.Timestamp(rec.CreatedAt),
		UpdatedAt:   models.Timestamp(rec.UpdatedAt),
	}
	p.Normalize()
	return p
}

// GORMProductStore is a GORM implementation of ProductStore, used with
// PostgreSQL in production or SQLite for a self-contained setup.
type GORMProductStore struct {
	db *gorm.DB
}

// NewGORMProductStore creates a new instance of GORMProductStore.
func NewGORMProductStore(db *gorm.DB) *GORMProductStore {
	return &GORMProductStore{
		db: db,
	}
}

// Migrate creates or updates the products table.
func (r *GORMProductStore) Migrate() error {
	return r.db.AutoMigrate(&productRecord{})
}

// List retrieves all products, newest first.
func (r *GORMProductStore) List(ctx context.Context) ([]models.Product, error) {
	var records []productRecord
	if err := r.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	products := make([]models.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, rec.toModel())
	}
	return products, nil
}

// Get retrieves a single product by its ID.
func (r *GORMProductStore) Get(ctx context.Context, id string) (*models.Product, error) {
	var rec productRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, models.ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	p := rec.toModel()
	return &p, nil
}

// Insert creates a new product row under a fresh UUID.
func (r *GORMProductStore) Insert(ctx context.Context, product *models.Product) (string, error) {
	rec := toRecord(product)
	rec.ID = uuid.New().String()
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", fmt.Errorf("failed to create product: %w", err)
	}
	return rec.ID, nil
}

// Update writes only the columns present in patch.
func (r *GORMProductStore) Update(ctx context.Context, id string, patch models.ProductPatch, updatedAt time.Time) error {
	values := map[string]interface{}{"updated_at": updatedAt}
	if patch.Name != nil {
		values["name"] = *patch.Name
	}
	if patch.Price != nil {
		values["price"] = *patch.Price
	}
	if patch.Description != nil {
		values["description"] = *patch.Description
	}
	if patch.Category != nil {
		values["category"] = *patch.Category
	}
	if patch.Sizes != nil {
		values["sizes"] = datatypes.NewJSONSlice(patch.Sizes)
	}
	if patch.Colors != nil {
		values["colors"] = datatypes.NewJSONSlice(patch.Colors)
	}
	if patch.Images != nil {
		values["images"] = datatypes.NewJSONSlice(patch.Images)
	}
	if patch.Features != nil {
		values["features"] = datatypes.NewJSONSlice(patch.Features)
	}
	if patch.Rating != nil {
		values["rating"] = *patch.Rating
	}
	if patch.Reviews != nil {
		values["reviews"] = *patch.Reviews
	}

	res := r.db.WithContext(ctx).Model(&productRecord{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s not found for update: %w", id, models.ErrProductNotFound)
	}
	return nil
}

// Delete deletes a product by its ID.
func (r *GORMProductStore) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&productRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s not found for deletion: %w", id, models.ErrProductNotFound)
	}
	return nil
}
