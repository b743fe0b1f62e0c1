// Package model defines domain types used by the service.
package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product is an inventory item. CategoryID may reference a deleted
// category; orphaned references are tolerated.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	CategoryID string          `json:"categoryId,omitempty"`
	Image      string          `json:"image,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ProductInput carries the caller-supplied fields of a new product.
type ProductInput struct {
	Name       string
	SKU        string
	Price      decimal.Decimal
	Stock      int
	CategoryID string
	Image      string
}

// ProductPatch is a shallow-merge patch; nil fields are left untouched.
type ProductPatch struct {
	Name       *string          `json:"name,omitempty"`
	SKU        *string          `json:"sku,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Stock      *int             `json:"stock,omitempty"`
	CategoryID *string          `json:"categoryId,omitempty"`
	Image      *string          `json:"image,omitempty"`
}

// Category groups products.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoryInput carries the caller-supplied fields of a new category.
type CategoryInput struct {
	Name string
}

// CategoryPatch is a shallow-merge patch; nil fields are left untouched.
type CategoryPatch struct {
	Name *string `json:"name,omitempty"`
}

// Operation is the kind of mutation recorded in the change log.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// EntityKind tags a change-log entry with the collection it touched.
type EntityKind string

const (
	EntityProduct  EntityKind = "product"
	EntityCategory EntityKind = "category"
)

// ChangeEntry is one append-only change-log record. Payload holds the
// created entity, the patch plus id for updates, or just the id for
// deletes.
type ChangeEntry struct {
	ID      string          `json:"id"`
	Op      Operation       `json:"type"`
	Entity  EntityKind      `json:"entity"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// ProductUpdatePayload is the {id, ...patch} shape logged and broadcast
// for product updates.
type ProductUpdatePayload struct {
	ID string `json:"id"`
	ProductPatch
}

// CategoryUpdatePayload is the {id, ...patch} shape logged and broadcast
// for category updates.
type CategoryUpdatePayload struct {
	ID string `json:"id"`
	CategoryPatch
}

// DeletePayload is the {id} shape logged and broadcast for deletes.
type DeletePayload struct {
	ID string `json:"id"`
}
