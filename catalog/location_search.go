package catalog

import (
	"context"
	"sync"

	"github.com/BigWednesdayIO/suppliers-api-sub000/datastore"
)

// DeliveryLocation holds up to five optional location predicates. A supplier
// matches when at least one of its depots matches any non-empty predicate.
type DeliveryLocation struct {
	Country  string
	Region   string
	County   string
	District string
	Place    string
}

// predicates returns one equality filter per non-empty field.
func (l DeliveryLocation) predicates() []datastore.Filter {
	fields := []struct {
		name  string
		value string
	}{
		{"delivery_country", l.Country},
		{"delivery_region", l.Region},
		{"delivery_county", l.County},
		{"delivery_district", l.District},
		{"delivery_place", l.Place},
	}

	var filters []datastore.Filter
	for _, f := range fields {
		if f.value != "" {
			filters = append(filters, datastore.Filter{Field: f.name, Value: f.value})
		}
	}
	return filters
}

// FindSuppliersByDeliveryLocation returns the suppliers that have at least
// one depot matching any of the given location predicates.
//
// The store has no disjunction operator, so the OR is emulated: one keys-only
// single-predicate depot query per non-empty field, issued concurrently, then
// unioned. Depot keys are deduplicated structurally, truncated to their
// supplier ancestor, deduplicated again and batch-fetched. A depot matching
// several predicates therefore contributes its supplier exactly once. No
// ordering guarantee across suppliers.
//
// Zero non-empty predicates returns an empty result without touching the
// store. If any branch fails the whole operation fails after all branches
// settle; no partial result is returned.
func (s *Service) FindSuppliersByDeliveryLocation(ctx context.Context, loc DeliveryLocation) ([]datastore.Entity, error) {
	preds := loc.predicates()
	if len(preds) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	var depotKeys []datastore.Key
	var wg sync.WaitGroup
	errs := make(chan error, len(preds))

	for _, pred := range preds {
		wg.Add(1)
		go func(pred datastore.Filter) {
			defer wg.Done()

			keys, err := s.store.FindKeys(ctx, datastore.Query{
				Kind:    KindDepot,
				Filters: []datastore.Filter{pred},
			})
			if err != nil {
				errs <- err
				return
			}

			mu.Lock()
			depotKeys = append(depotKeys, keys...)
			mu.Unlock()
		}(pred)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	supplierKeys := dedupeAncestors(depotKeys)
	if len(supplierKeys) == 0 {
		return nil, nil
	}

	return s.store.GetMulti(ctx, supplierKeys)
}

// dedupeAncestors deduplicates child keys structurally, truncates each to its
// supplier root and deduplicates the resulting ancestor keys.
func dedupeAncestors(childKeys []datastore.Key) []datastore.Key {
	seenChild := make(map[string]struct{}, len(childKeys))
	seenAncestor := make(map[string]struct{})
	var ancestors []datastore.Key

	for _, k := range childKeys {
		if len(k) < 2 {
			continue
		}
		child := k.String()
		if _, ok := seenChild[child]; ok {
			continue
		}
		seenChild[child] = struct{}{}

		ancestor := k[:1]
		enc := ancestor.String()
		if _, ok := seenAncestor[enc]; ok {
			continue
		}
		seenAncestor[enc] = struct{}{}
		ancestors = append(ancestors, ancestor)
	}

	return ancestors
}
