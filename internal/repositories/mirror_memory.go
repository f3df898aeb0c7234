package repositories

import (
	"context"
	"sync"

	"storefront/internal/models"
)

// MemoryMirror holds the encoded list in memory. It goes through the same
// encoding as the durable mirrors so malformed payloads behave the same way.
type MemoryMirror struct {
	payload []byte
	seeded  bool
	mu      sync.RWMutex
}

// NewMemoryMirror returns an empty, never-seeded mirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{}
}

func (m *MemoryMirror) Load(ctx context.Context) ([]models.Product, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.seeded {
		return []models.Product{}, false, nil
	}
	products, err := decodeMirror(m.payload)
	return products, true, err
}

func (m *MemoryMirror) Save(ctx context.Context, products []models.Product) error {
	payload, err := encodeMirror(products)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = payload
	m.seeded = true
	return nil
}

// SetRaw stores payload verbatim, bypassing encoding.
func (m *MemoryMirror) SetRaw(payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = payload
	m.seeded = true
}
