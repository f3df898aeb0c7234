package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"storefront/internal/models"
)

// EventPublisher delivers product change events to interested parties.
type EventPublisher interface {
	PublishProductEvent(event models.ProductEvent) error
}

// MultiPublisher fans an event out to every publisher, logging failures.
type MultiPublisher []EventPublisher

func (m MultiPublisher) PublishProductEvent(event models.ProductEvent) error {
	var failed int
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishProductEvent(event); err != nil {
			log.Printf("Warning: failed to publish %s event for product %s: %v", event.Type, event.ProductID, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d publishers failed", failed, len(m))
	}
	return nil
}

// MirrorSyncer refreshes the local mirror when another instance reports a
// product change.
type MirrorSyncer struct {
	products *ProductService
	instance string
}

// NewMirrorSyncer creates a MirrorSyncer ignoring events from instance.
func NewMirrorSyncer(products *ProductService, instance string) *MirrorSyncer {
	return &MirrorSyncer{products: products, instance: instance}
}

// HandleEvent decodes a product event and resyncs the mirror unless the event
// came from this instance. Undecodable bodies are dropped.
func (m *MirrorSyncer) HandleEvent(ctx context.Context, body []byte) error {
	var event models.ProductEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("Dropping undecodable product event: %v", err)
		return nil
	}
	if event.Instance == m.instance {
		return nil
	}
	if err := m.products.RefreshMirror(ctx); err != nil {
		return fmt.Errorf("failed to refresh mirror after %s of %s: %w", event.Type, event.ProductID, err)
	}
	log.Printf("Mirror refreshed after %s of product %s from %s", event.Type, event.ProductID, event.Instance)
	return nil
}
