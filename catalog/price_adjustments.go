package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/BigWednesdayIO/suppliers-api-sub000/datastore"
)

// FindActivePriceAdjustments returns the price adjustments in the given group
// that are active at the given instant, restricted to adjustments belonging
// to one of the given linked products.
//
// An adjustment is active at t when start_date <= t and either end_date is
// absent or t < end_date: a half-open window, open-ended adjustments stay
// active indefinitely.
//
// The store cannot combine the group equality, a scope across multiple
// non-sibling ancestors and a date range in one query, so the matcher issues
// one parent-scoped, group-filtered find per linked product id concurrently
// and applies the active-window predicate in process on the union. A failing
// branch fails the whole operation after all branches settle. Results keep
// the store's created-ascending order within each linked product.
func (s *Service) FindActivePriceAdjustments(ctx context.Context, groupID string, instant time.Time, linkedProductIDs []string) ([]datastore.Entity, error) {
	if groupID == "" {
		return nil, &datastore.MissingIdentifierError{Field: "price_adjustment_group_id"}
	}
	if len(linkedProductIDs) == 0 {
		return nil, nil
	}

	results := make([][]datastore.Entity, len(linkedProductIDs))
	var wg sync.WaitGroup
	errs := make(chan error, len(linkedProductIDs))

	for i, linkedProductID := range linkedProductIDs {
		wg.Add(1)
		go func(i int, linkedProductID string) {
			defer wg.Done()

			adjustments, err := s.store.Find(ctx, datastore.Query{
				Kind:   KindPriceAdjustment,
				Parent: datastore.PathPair{Kind: KindLinkedProduct, ID: linkedProductID},
				Filters: []datastore.Filter{
					{Field: "price_adjustment_group_id", Value: groupID},
				},
			})
			if err != nil {
				errs <- err
				return
			}
			results[i] = adjustments
		}(i, linkedProductID)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var active []datastore.Entity
	for _, branch := range results {
		for _, adj := range branch {
			if adjustmentActiveAt(adj, instant) {
				active = append(active, adj)
			}
		}
	}
	return active, nil
}

// adjustmentActiveAt applies the half-open active window [start_date,
// end_date) to an adjustment. An unparseable or absent start date never
// matches; an absent end date leaves the window open-ended.
func adjustmentActiveAt(adj datastore.Entity, t time.Time) bool {
	start, ok := attrTime(adj.Attrs, "start_date")
	if !ok || start.After(t) {
		return false
	}
	if end, ok := attrTime(adj.Attrs, "end_date"); ok {
		return t.Before(end)
	}
	return true
}

// attrTime reads an instant attribute, accepting the stored string encoding
// as well as an in-process time value.
func attrTime(attrs map[string]any, field string) (time.Time, bool) {
	switch v := attrs[field].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}
