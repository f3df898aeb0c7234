package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type mirrorSlot struct {
	Name      string `gorm:"primaryKey;type:varchar(100)"`
	Payload   string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (mirrorSlot) TableName() string { return "mirror_slots" }

// GORMMirror keeps the product list in one row of the mirror_slots table,
// normally inside a SQLite file next to the service.
type GORMMirror struct {
	db   *gorm.DB
	slot string
}

// NewGORMMirror creates a mirror writing to the named slot.
func NewGORMMirror(db *gorm.DB, slot string) *GORMMirror {
	return &GORMMirror{db: db, slot: slot}
}

// Migrate creates the mirror_slots table.
func (m *GORMMirror) Migrate() error {
	return m.db.AutoMigrate(&mirrorSlot{})
}

func (m *GORMMirror) Load(ctx context.Context) ([]models.Product, bool, error) {
	var row mirrorSlot
	if err := m.db.WithContext(ctx).First(&row, "name = ?", m.slot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.Product{}, false, nil
		}
		return nil, false, fmt.Errorf("failed to read mirror slot %s: %w", m.slot, err)
	}
	products, err := decodeMirror([]byte(row.Payload))
	return products, true, err
}

func (m *GORMMirror) Save(ctx context.Context, products []models.Product) error {
	payload, err := encodeMirror(products)
	if err != nil {
		return err
	}
	row := mirrorSlot{Name: m.slot, Payload: string(payload), UpdatedAt: time.Now()}
	err = m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write mirror slot %s: %w", m.slot, err)
	}
	return nil
}

func encodeMirror(products []models.Product) ([]byte, error) {
	if products == nil {
		products = []models.Product{}
	}
	payload, err := json.Marshal(products)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mirror: %w", err)
	}
	return payload, nil
}

func decodeMirror(payload []byte) ([]models.Product, error) {
	var products []models.Product
	if err := json.Unmarshal(payload, &products); err != nil {
		return []models.Product{}, fmt.Errorf("%w: %v", models.ErrMalformedMirror, err)
	}
	if products == nil {
		products = []models.Product{}
	}
	for i := range products {
		products[i].Normalize()
	}
	return products, nil
}
