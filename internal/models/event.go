package models

import "time"

// ProductEvent types.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ProductEvent is published after every successful product write.
type ProductEvent struct {
	Type      string    `json:"type"`
	ProductID string    `json:"productId"`
	Synced    bool      `json:"synced"`
	Instance  string    `json:"instance"`
	At        time.Time `json:"at"`
}
