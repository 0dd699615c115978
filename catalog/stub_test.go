package catalog_test

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/BigWednesdayIO/suppliers-api-sub000/catalog"
	"github.com/BigWednesdayIO/suppliers-api-sub000/datastore"
)

// stubStore is an in-memory catalog.Store. It evaluates queries against the
// held entities and records call counts so tests can assert on the calls a
// composed operation makes, not just its result.
type stubStore struct {
	mu       sync.Mutex
	entities map[string]datastore.Entity
	seq      int

	// findKeysErr, when set, fails FindKeys calls whose query it matches.
	findKeysErr func(q datastore.Query) error
	// findErr, when set, fails Find calls whose query it matches.
	findErr func(q datastore.Query) error

	getCalls      int
	getMultiCalls int
	findCalls     int
	findKeysCalls int
	deleteCalls   int
	hasDescCalls  int
}

var _ catalog.Store = (*stubStore)(nil)

func newStubStore() *stubStore {
	return &stubStore{entities: make(map[string]datastore.Entity)}
}

// add seeds an entity directly, bypassing the store API. Creation instants
// increase with insertion order.
func (s *stubStore) add(key datastore.Key, attrs map[string]any) datastore.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e := datastore.Entity{
		Key:     key,
		Attrs:   attrs,
		Created: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Minute),
	}
	e.Updated = e.Created
	s.entities[key.String()] = e
	return e
}

func (s *stubStore) Create(ctx context.Context, key datastore.Key, attrs map[string]any) (datastore.Entity, error) {
	s.mu.Lock()
	seq := s.seq + 1
	_, exists := s.entities[key.String()]
	s.mu.Unlock()
	if !key.Complete() {
		key = key.WithID(fmt.Sprintf("gen-%d", seq))
	} else if exists {
		return datastore.Entity{}, datastore.ErrAlreadyExists
	}
	return s.add(key, attrs), nil
}

func (s *stubStore) Get(ctx context.Context, key datastore.Key) (datastore.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	e, ok := s.entities[key.String()]
	if !ok {
		return datastore.Entity{}, datastore.ErrNotFound
	}
	return e, nil
}

func (s *stubStore) GetMulti(ctx context.Context, keys []datastore.Key) ([]datastore.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getMultiCalls++
	var out []datastore.Entity
	for _, k := range keys {
		if e, ok := s.entities[k.String()]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubStore) Upsert(ctx context.Context, key datastore.Key, attrs map[string]any) (datastore.Entity, bool, error) {
	s.mu.Lock()
	_, existed := s.entities[key.String()]
	s.mu.Unlock()
	if existed {
		s.mu.Lock()
		e := s.entities[key.String()]
		e.Attrs = attrs
		s.entities[key.String()] = e
		s.mu.Unlock()
		return e, false, nil
	}
	return s.add(key, attrs), true, nil
}

func (s *stubStore) Delete(ctx context.Context, key datastore.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	delete(s.entities, key.String())
	return nil
}

func (s *stubStore) Find(ctx context.Context, q datastore.Query) ([]datastore.Entity, error) {
	s.mu.Lock()
	s.findCalls++
	s.mu.Unlock()
	if s.findErr != nil {
		if err := s.findErr(q); err != nil {
			return nil, err
		}
	}
	return s.query(q), nil
}

func (s *stubStore) FindKeys(ctx context.Context, q datastore.Query) ([]datastore.Key, error) {
	s.mu.Lock()
	s.findKeysCalls++
	s.mu.Unlock()
	if s.findKeysErr != nil {
		if err := s.findKeysErr(q); err != nil {
			return nil, err
		}
	}
	var keys []datastore.Key
	for _, e := range s.query(q) {
		keys = append(keys, e.Key)
	}
	return keys, nil
}

func (s *stubStore) HasDescendants(ctx context.Context, key datastore.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasDescCalls++
	for _, e := range s.entities {
		if e.Key.HasAncestor(key) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) query(q datastore.Query) []datastore.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []datastore.Entity
	for _, e := range s.entities {
		if matches(e, q) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out
}

func matches(e datastore.Entity, q datastore.Query) bool {
	if q.Kind != "" && e.Key.Kind() != q.Kind {
		return false
	}
	if len(q.Ancestor) > 0 && !e.Key.HasAncestor(q.Ancestor) {
		return false
	}
	if q.Parent != (datastore.PathPair{}) {
		p := e.Key.Parent()
		if p == nil || p.Leaf() != q.Parent {
			return false
		}
	}
	for _, f := range q.Filters {
		if !reflect.DeepEqual(e.Attrs[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func mustKey(fn func() (datastore.Key, error)) datastore.Key {
	k, err := fn()
	if err != nil {
		panic(err)
	}
	return k
}

func supplier(id string) datastore.Key {
	return mustKey(func() (datastore.Key, error) { return catalog.SupplierKey(id) })
}

func depot(supplierID, depotID string) datastore.Key {
	return mustKey(func() (datastore.Key, error) { return catalog.DepotKey(supplierID, depotID) })
}

func linkedProduct(supplierID, linkedProductID string) datastore.Key {
	return mustKey(func() (datastore.Key, error) { return catalog.LinkedProductKey(supplierID, linkedProductID) })
}

func priceAdjustment(supplierID, linkedProductID, adjustmentID string) datastore.Key {
	return mustKey(func() (datastore.Key, error) {
		return catalog.PriceAdjustmentKey(supplierID, linkedProductID, adjustmentID)
	})
}
