package catalog

import (
	"github.com/BigWednesdayIO/suppliers-api-sub000/datastore"
	"github.com/BigWednesdayIO/suppliers-api-sub000/internal/keypath"
)

// Entity kinds in the catalog hierarchy. Suppliers are roots; depots and
// linked products sit directly under a supplier; price adjustments sit under
// a linked product.
const (
	KindSupplier        = "supplier"
	KindDepot           = "depot"
	KindLinkedProduct   = "linked_product"
	KindPriceAdjustment = "price_adjustment"
)

// SupplierKey returns the key for a supplier. An empty id addresses a create
// destination.
func SupplierKey(supplierID string) (datastore.Key, error) {
	if err := checkID("id", supplierID); err != nil {
		return nil, err
	}
	return datastore.NewKey(
		datastore.PathPair{Kind: KindSupplier, ID: supplierID},
	), nil
}

// DepotKey returns the key for a depot under a supplier. The supplier id is
// required; a missing one fails at construction time, before any store call.
func DepotKey(supplierID, depotID string) (datastore.Key, error) {
	if err := requireID("supplier_id", supplierID); err != nil {
		return nil, err
	}
	if err := checkID("id", depotID); err != nil {
		return nil, err
	}
	return datastore.NewKey(
		datastore.PathPair{Kind: KindSupplier, ID: supplierID},
		datastore.PathPair{Kind: KindDepot, ID: depotID},
	), nil
}

// LinkedProductKey returns the key for a linked product under a supplier.
func LinkedProductKey(supplierID, linkedProductID string) (datastore.Key, error) {
	if err := requireID("supplier_id", supplierID); err != nil {
		return nil, err
	}
	if err := checkID("id", linkedProductID); err != nil {
		return nil, err
	}
	return datastore.NewKey(
		datastore.PathPair{Kind: KindSupplier, ID: supplierID},
		datastore.PathPair{Kind: KindLinkedProduct, ID: linkedProductID},
	), nil
}

// PriceAdjustmentKey returns the key for a price adjustment under a linked
// product. Required ancestor ids are checked left to right: supplier first,
// then linked product.
func PriceAdjustmentKey(supplierID, linkedProductID, priceAdjustmentID string) (datastore.Key, error) {
	if err := requireID("supplier_id", supplierID); err != nil {
		return nil, err
	}
	if err := requireID("linked_product_id", linkedProductID); err != nil {
		return nil, err
	}
	if err := checkID("id", priceAdjustmentID); err != nil {
		return nil, err
	}
	return datastore.NewKey(
		datastore.PathPair{Kind: KindSupplier, ID: supplierID},
		datastore.PathPair{Kind: KindLinkedProduct, ID: linkedProductID},
		datastore.PathPair{Kind: KindPriceAdjustment, ID: priceAdjustmentID},
	), nil
}

// requireID validates a required ancestor identifier.
func requireID(field, id string) error {
	if id == "" {
		return &datastore.MissingIdentifierError{Field: field}
	}
	return checkID(field, id)
}

// checkID validates an optional identifier: empty is fine (leaf of a create
// destination), but a supplied value must be path-safe.
func checkID(field, id string) error {
	if id == "" {
		return nil
	}
	if !keypath.ValidID(id) {
		return &datastore.InvalidIdentifierError{Field: field, Value: id}
	}
	return nil
}
