package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BigWednesdayIO/suppliers-api-sub000/datastore"
)

// SupplierMatch is a supplier returned by a product search, annotated with
// the linked product that satisfied the match.
type SupplierMatch struct {
	datastore.Entity

	// LinkedProductID identifies the linked product that matched. When a
	// supplier has several matching linked products the first match wins.
	LinkedProductID string
}

// MarshalJSON renders the supplier in its response shape with the matching
// linked product id carried in the _metadata block.
func (m SupplierMatch) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(m.Attrs)+2)
	for k, v := range m.Attrs {
		obj[k] = v
	}
	obj["id"] = m.Entity.ID()
	obj["_metadata"] = struct {
		Created         time.Time `json:"created"`
		Updated         time.Time `json:"updated"`
		LinkedProductID string    `json:"linked_product_id"`
	}{m.Created, m.Updated, m.LinkedProductID}
	return json.Marshal(obj)
}

// FindSuppliersBySuppliedProduct returns the suppliers that supply the given
// product, each annotated with the linked product that matched.
//
// One keys-only query finds the linked products carrying the product id;
// their keys are truncated to distinct supplier ancestors, which are then
// batch-fetched. Zero matching linked products short-circuits to an empty
// result with no further store calls.
func (s *Service) FindSuppliersBySuppliedProduct(ctx context.Context, productID string) ([]SupplierMatch, error) {
	if productID == "" {
		return nil, &datastore.MissingIdentifierError{Field: "product_id"}
	}

	linkedKeys, err := s.store.FindKeys(ctx, datastore.Query{
		Kind:    KindLinkedProduct,
		Filters: []datastore.Filter{{Field: "product_id", Value: productID}},
	})
	if err != nil {
		return nil, err
	}
	if len(linkedKeys) == 0 {
		return nil, nil
	}

	// First matching linked product per supplier wins.
	matchedProduct := make(map[string]string, len(linkedKeys))
	var supplierKeys []datastore.Key
	for _, k := range linkedKeys {
		if len(k) < 2 {
			continue
		}
		ancestor := k[:1]
		enc := ancestor.String()
		if _, ok := matchedProduct[enc]; ok {
			continue
		}
		matchedProduct[enc] = k.ID()
		supplierKeys = append(supplierKeys, ancestor)
	}

	suppliers, err := s.store.GetMulti(ctx, supplierKeys)
	if err != nil {
		return nil, err
	}

	matches := make([]SupplierMatch, 0, len(suppliers))
	for _, sup := range suppliers {
		matches = append(matches, SupplierMatch{
			Entity:          sup,
			LinkedProductID: matchedProduct[sup.Key.String()],
		})
	}
	return matches, nil
}
