// Package catalog implements the supplier and product catalog operations on
// top of the datastore layer: generic entity CRUD plus the composed searches
// for delivery locations, supplied products and active price adjustments.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/BigWednesdayIO/suppliers-api-sub000/datastore"
)

// Store is the persistence capability the catalog consumes. Satisfied by
// *datastore.Store; substitutable with fakes in tests.
type Store interface {
	Create(ctx context.Context, key datastore.Key, attrs map[string]any) (datastore.Entity, error)
	Get(ctx context.Context, key datastore.Key) (datastore.Entity, error)
	GetMulti(ctx context.Context, keys []datastore.Key) ([]datastore.Entity, error)
	Upsert(ctx context.Context, key datastore.Key, attrs map[string]any) (datastore.Entity, bool, error)
	Delete(ctx context.Context, key datastore.Key) error
	Find(ctx context.Context, q datastore.Query) ([]datastore.Entity, error)
	FindKeys(ctx context.Context, q datastore.Query) ([]datastore.Key, error)
	HasDescendants(ctx context.Context, key datastore.Key) (bool, error)
}

var _ Store = (*datastore.Store)(nil)

// Service exposes the catalog operation contracts consumed by the routing
// layer. All persistence goes through the injected Store; the service never
// talks to the backing database directly.
type Service struct {
	store Store
}

// NewService creates a catalog service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create persists a new entity at the given destination key. When the
// attributes carry an "id", it becomes the leaf identifier; otherwise one is
// generated by the store.
func (s *Service) Create(ctx context.Context, key datastore.Key, attrs map[string]any) (datastore.Entity, error) {
	if len(key) == 0 {
		return datastore.Entity{}, fmt.Errorf("catalog: create requires a key")
	}
	if !key.Complete() {
		if id, ok := attrs["id"].(string); ok && id != "" {
			// Body-sourced ids get the same path-safety check as URL ids.
			if err := checkID("id", id); err != nil {
				return datastore.Entity{}, err
			}
			key = key.WithID(id)
		}
	}
	return s.store.Create(ctx, key, attrs)
}

// Get returns the entity at the given key.
func (s *Service) Get(ctx context.Context, key datastore.Key) (datastore.Entity, error) {
	return s.store.Get(ctx, key)
}

// Upsert creates or updates the entity at exactly the given key. The returned
// flag reports whether an insert happened.
func (s *Service) Upsert(ctx context.Context, key datastore.Key, attrs map[string]any) (datastore.Entity, bool, error) {
	return s.store.Upsert(ctx, key, attrs)
}

// Delete removes the entity at the given key. The target must exist, and a
// supplier or linked product with dependents is rejected before any delete
// reaches the store. The existence check, the dependent probe and the delete
// are separate round trips; a dependent created in between slips past the
// guard.
func (s *Service) Delete(ctx context.Context, key datastore.Key) error {
	if _, err := s.store.Get(ctx, key); err != nil {
		return err
	}

	if kindHasDependents(key.Kind()) {
		has, err := s.store.HasDescendants(ctx, key)
		if err != nil {
			return err
		}
		if has {
			return datastore.ErrHasDependents
		}
	}

	return s.store.Delete(ctx, key)
}

// Find returns entities of a kind, optionally scoped to an ancestor,
// ordered ascending by creation instant.
func (s *Service) Find(ctx context.Context, kind string, ancestor datastore.Key, offset, limit int) ([]datastore.Entity, error) {
	return s.store.Find(ctx, datastore.Query{
		Kind:     kind,
		Ancestor: ancestor,
		Offset:   offset,
		Limit:    limit,
	})
}

// kindHasDependents reports whether a kind can have children in the
// hierarchy and therefore needs the deletion guard.
func kindHasDependents(kind string) bool {
	return kind == KindSupplier || kind == KindLinkedProduct
}

// IsNotFound reports whether an error signals a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, datastore.ErrNotFound)
}
