package store

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/obs"
)

// ApplyBroadcast re-applies a mutation received from the broadcast
// channel. This mirrors a real push architecture where a client receives
// server echoes of its own writes: messages whose sequence is already
// applied locally are echoes and are skipped, everything else is applied
// idempotently (upsert by id, silent merge skip, no-op delete) together
// with a history entry. A second store attached to the same channel
// converges; the originating store never double-inserts.
//
// Replay is a trusting layer: malformed payloads are logged and dropped,
// patches aimed at absent entities are tolerated (stale delete-then-update
// races are expected in push systems), and nothing is ever returned to a
// caller.
func (s *Store) ApplyBroadcast(msg model.Message) {
	if msg.Type != model.TypeBroadcast {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Seq != 0 && msg.Seq <= s.lastApplied {
		return
	}
	now := time.Now()
	switch msg.Action {
	case model.ActionProductCreated:
		var p model.Product
		if !unmarshalPayload(msg, &p) {
			return
		}
		if i := indexProduct(s.products, p.ID); i >= 0 {
			s.products[i] = p
		} else {
			s.products = append([]model.Product{p}, s.products...)
		}
		s.appendEntryLocked(model.OpCreate, model.EntityProduct, msg.Payload, now)
	case model.ActionProductUpdated:
		var pl model.ProductUpdatePayload
		if !unmarshalPayload(msg, &pl) {
			return
		}
		if i := indexProduct(s.products, pl.ID); i >= 0 {
			p := mergeProduct(s.products[i], pl.ProductPatch)
			p.UpdatedAt = now
			s.products[i] = p
		}
		s.appendEntryLocked(model.OpUpdate, model.EntityProduct, msg.Payload, now)
	case model.ActionProductDeleted:
		var pl model.DeletePayload
		if !unmarshalPayload(msg, &pl) {
			return
		}
		if i := indexProduct(s.products, pl.ID); i >= 0 {
			s.products = append(s.products[:i:i], s.products[i+1:]...)
		}
		s.appendEntryLocked(model.OpDelete, model.EntityProduct, msg.Payload, now)
	case model.ActionCategoryCreated:
		var c model.Category
		if !unmarshalPayload(msg, &c) {
			return
		}
		if i := indexCategory(s.categories, c.ID); i >= 0 {
			s.categories[i] = c
		} else {
			s.categories = append([]model.Category{c}, s.categories...)
		}
		s.appendEntryLocked(model.OpCreate, model.EntityCategory, msg.Payload, now)
	case model.ActionCategoryUpdated:
		var pl model.CategoryUpdatePayload
		if !unmarshalPayload(msg, &pl) {
			return
		}
		if i := indexCategory(s.categories, pl.ID); i >= 0 {
			c := s.categories[i]
			if pl.Name != nil {
				c.Name = *pl.Name
			}
			s.categories[i] = c
		}
		s.appendEntryLocked(model.OpUpdate, model.EntityCategory, msg.Payload, now)
	case model.ActionCategoryDeleted:
		var pl model.DeletePayload
		if !unmarshalPayload(msg, &pl) {
			return
		}
		if i := indexCategory(s.categories, pl.ID); i >= 0 {
			s.categories = append(s.categories[:i:i], s.categories[i+1:]...)
		}
		s.appendEntryLocked(model.OpDelete, model.EntityCategory, msg.Payload, now)
	default:
		obs.Logger.Warn("broadcast with unknown action dropped", "action", string(msg.Action))
		return
	}
	if msg.Seq > s.lastApplied {
		s.lastApplied = msg.Seq
	}
}

// LoadSnapshot replaces the canonical collections from an init message so
// a freshly attached view can bootstrap without waiting for the next
// mutation. The change log is untouched.
func (s *Store) LoadSnapshot(products []model.Product, categories []model.Category) {
	s.mu.Lock()
	s.products = slices.Clone(products)
	s.categories = slices.Clone(categories)
	s.mu.Unlock()
}

func unmarshalPayload(msg model.Message, v any) bool {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		obs.Logger.Warn("broadcast payload discarded",
			"action", string(msg.Action),
			"error", err,
		)
		return false
	}
	return true
}
