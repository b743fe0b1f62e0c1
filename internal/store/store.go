// Package store holds the canonical product and category collections and
// the append-only change log. All mutations go through the Store contract;
// other packages only see snapshot copies.
package store

import (
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
	"github.com/fairyhunter13/inventory-admin-simulator/internal/obs"
)

// ErrNotFound reports an update or delete aimed at an id that is not in
// the canonical collection. The broadcast-replay path never returns it.
var ErrNotFound = errors.New("store: entity not found")

// Publisher fans one broadcast message out to channel subscribers.
// Implementations are best-effort: failures are swallowed and logged,
// never surfaced to the mutation caller.
type Publisher interface {
	Publish(msg model.Message)
}

// Store owns the canonical collections and the change log. One mutex
// covers collections, log and sequence, so every mutation lands as a
// single atomic unit: collection change, exactly one log entry, sequence
// advance. Broadcasts are staged on an outbox under the same lock and
// drained in order outside it, so fan-out order always matches sequence
// order even under concurrent mutations.
type Store struct {
	mu          sync.RWMutex
	products    []model.Product
	categories  []model.Category
	history     []model.ChangeEntry
	outbox      []model.Message
	draining    bool
	seq         uint64
	lastApplied uint64
	pub         Publisher
}

// New constructs an empty Store. A nil publisher disables fan-out.
func New(pub Publisher) *Store {
	return &Store{pub: pub}
}

// SetPublisher wires fan-out after construction; the loopback hub needs
// the store's snapshot before the publisher can exist.
func (s *Store) SetPublisher(pub Publisher) {
	s.mu.Lock()
	s.pub = pub
	s.mu.Unlock()
}

// CreateProduct mints an id, stamps updatedAt, prepends the product,
// logs a create entry carrying the full entity and publishes it. Inputs
// are trusted; validation is the caller's concern.
func (s *Store) CreateProduct(in model.ProductInput) model.Product {
	now := time.Now()
	p := model.Product{
		ID:         uuid.NewString(),
		Name:       in.Name,
		SKU:        in.SKU,
		Price:      in.Price,
		Stock:      in.Stock,
		CategoryID: in.CategoryID,
		Image:      in.Image,
		UpdatedAt:  now,
	}
	s.mu.Lock()
	seq := s.nextSeqLocked()
	s.products = append([]model.Product{p}, s.products...)
	s.appendEntryLocked(model.OpCreate, model.EntityProduct, marshalPayload(p), now)
	s.queueBroadcastLocked(model.ActionProductCreated, p, seq)
	s.mu.Unlock()
	s.flushOutbox()
	return p
}

// UpdateProduct shallow-merges patch into the product with the given id,
// refreshing updatedAt. The log entry and broadcast carry {id, ...patch},
// not the merged entity. A missing id returns ErrNotFound with no log
// entry and no broadcast.
func (s *Store) UpdateProduct(id string, patch model.ProductPatch) (model.Product, error) {
	s.mu.Lock()
	i := indexProduct(s.products, id)
	if i < 0 {
		s.mu.Unlock()
		return model.Product{}, ErrNotFound
	}
	now := time.Now()
	p := mergeProduct(s.products[i], patch)
	p.UpdatedAt = now
	s.products[i] = p
	payload := model.ProductUpdatePayload{ID: id, ProductPatch: patch}
	seq := s.nextSeqLocked()
	s.appendEntryLocked(model.OpUpdate, model.EntityProduct, marshalPayload(payload), now)
	s.queueBroadcastLocked(model.ActionProductUpdated, payload, seq)
	s.mu.Unlock()
	s.flushOutbox()
	return p, nil
}

// DeleteProduct removes the product, logs a delete entry carrying {id}
// and publishes it. A missing id returns ErrNotFound with no log entry.
// No referential cascade: products referencing a deleted category keep
// their dangling reference, and vice versa.
func (s *Store) DeleteProduct(id string) error {
	s.mu.Lock()
	i := indexProduct(s.products, id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	now := time.Now()
	s.products = append(s.products[:i:i], s.products[i+1:]...)
	payload := model.DeletePayload{ID: id}
	seq := s.nextSeqLocked()
	s.appendEntryLocked(model.OpDelete, model.EntityProduct, marshalPayload(payload), now)
	s.queueBroadcastLocked(model.ActionProductDeleted, payload, seq)
	s.mu.Unlock()
	s.flushOutbox()
	return nil
}

// CreateCategory mirrors CreateProduct for categories.
func (s *Store) CreateCategory(in model.CategoryInput) model.Category {
	now := time.Now()
	c := model.Category{ID: uuid.NewString(), Name: in.Name}
	s.mu.Lock()
	seq := s.nextSeqLocked()
	s.categories = append([]model.Category{c}, s.categories...)
	s.appendEntryLocked(model.OpCreate, model.EntityCategory, marshalPayload(c), now)
	s.queueBroadcastLocked(model.ActionCategoryCreated, c, seq)
	s.mu.Unlock()
	s.flushOutbox()
	return c
}

// UpdateCategory mirrors UpdateProduct for categories.
func (s *Store) UpdateCategory(id string, patch model.CategoryPatch) (model.Category, error) {
	s.mu.Lock()
	i := indexCategory(s.categories, id)
	if i < 0 {
		s.mu.Unlock()
		return model.Category{}, ErrNotFound
	}
	now := time.Now()
	c := s.categories[i]
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	s.categories[i] = c
	payload := model.CategoryUpdatePayload{ID: id, CategoryPatch: patch}
	seq := s.nextSeqLocked()
	s.appendEntryLocked(model.OpUpdate, model.EntityCategory, marshalPayload(payload), now)
	s.queueBroadcastLocked(model.ActionCategoryUpdated, payload, seq)
	s.mu.Unlock()
	s.flushOutbox()
	return c, nil
}

// DeleteCategory mirrors DeleteProduct for categories.
func (s *Store) DeleteCategory(id string) error {
	s.mu.Lock()
	i := indexCategory(s.categories, id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	now := time.Now()
	s.categories = append(s.categories[:i:i], s.categories[i+1:]...)
	payload := model.DeletePayload{ID: id}
	seq := s.nextSeqLocked()
	s.appendEntryLocked(model.OpDelete, model.EntityCategory, marshalPayload(payload), now)
	s.queueBroadcastLocked(model.ActionCategoryDeleted, payload, seq)
	s.mu.Unlock()
	s.flushOutbox()
	return nil
}

// Products returns a point-in-time snapshot copy, newest first.
func (s *Store) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products)
}

// Categories returns a point-in-time snapshot copy, newest first.
func (s *Store) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

// History returns the change log, most recent first.
func (s *Store) History() []model.ChangeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// Snapshot returns both collections from a single consistent view; the
// channel hub uses it to build init messages for new subscribers.
func (s *Store) Snapshot() ([]model.Product, []model.Category) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products), slices.Clone(s.categories)
}

// nextSeqLocked advances the write sequence. Marking the new sequence as
// applied is what lets ApplyBroadcast recognize echoes of local writes.
func (s *Store) nextSeqLocked() uint64 {
	s.seq++
	s.lastApplied = s.seq
	return s.seq
}

func (s *Store) appendEntryLocked(op model.Operation, entity model.EntityKind, payload json.RawMessage, at time.Time) {
	entry := model.ChangeEntry{
		ID:      uuid.NewString(),
		Op:      op,
		Entity:  entity,
		Payload: payload,
		At:      at,
	}
	s.history = append([]model.ChangeEntry{entry}, s.history...)
}

// queueBroadcastLocked stages the broadcast while the mutation lock is
// still held, so outbox position always matches sequence order.
func (s *Store) queueBroadcastLocked(action model.Action, payload any, seq uint64) {
	s.outbox = append(s.outbox, model.Message{
		Type:    model.TypeBroadcast,
		Action:  action,
		Payload: marshalPayload(payload),
		Seq:     seq,
	})
}

// flushOutbox drains staged broadcasts FIFO. A single drainer pops under
// the lock and publishes outside it: publishers may re-enter the store
// (the loopback hub snapshots on dial), and two mutations racing from
// unlock to publish must not hand the channel swapped sequence numbers.
func (s *Store) flushOutbox() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.outbox) > 0 {
		msg := s.outbox[0]
		s.outbox = s.outbox[1:]
		pub := s.pub
		s.mu.Unlock()
		if pub != nil {
			pub.Publish(msg)
		}
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

func marshalPayload(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		obs.Logger.Error("payload marshal failed", "error", err)
		return nil
	}
	return b
}

func indexProduct(ps []model.Product, id string) int {
	return slices.IndexFunc(ps, func(p model.Product) bool { return p.ID == id })
}

func indexCategory(cs []model.Category, id string) int {
	return slices.IndexFunc(cs, func(c model.Category) bool { return c.ID == id })
}

func mergeProduct(p model.Product, patch model.ProductPatch) model.Product {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.SKU != nil {
		p.SKU = *patch.SKU
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	return p
}
