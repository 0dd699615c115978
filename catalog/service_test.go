package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/BigWednesdayIO/suppliers-api-sub000/catalog"
	"github.com/BigWednesdayIO/suppliers-api-sub000/datastore"
)

func TestServiceCreateUsesIDFromAttrs(t *testing.T) {
	ctx := context.Background()
	stub := newStubStore()
	svc := catalog.NewService(stub)

	e, err := svc.Create(ctx, supplier(""), map[string]any{"id": "s1", "name": "grain"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID() != "s1" {
		t.Errorf("expected id from attributes, got %q", e.ID())
	}
}

func TestServiceCreateGeneratesID(t *testing.T) {
	ctx := context.Background()
	stub := newStubStore()
	svc := catalog.NewService(stub)

	e, err := svc.Create(ctx, supplier(""), map[string]any{"name": "grain"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID() == "" {
		t.Error("expected a generated id")
	}
}

func TestServiceCreateRejectsUnsafeIDFromAttrs(t *testing.T) {
	ctx := context.Background()

	for _, id := range []string{"a/b", "a#b", "supplier#s1/depot#d1"} {
		stub := newStubStore()
		svc := catalog.NewService(stub)

		_, err := svc.Create(ctx, supplier(""), map[string]any{"id": id, "name": "grain"})
		var invalid *datastore.InvalidIdentifierError
		if !errors.As(err, &invalid) {
			t.Fatalf("id %q: expected InvalidIdentifierError, got %v", id, err)
		}
		if invalid.Field != "id" || invalid.Value != id {
			t.Errorf("id %q: unexpected error detail %+v", id, invalid)
		}
		// Nothing reached the store.
		if len(stub.entities) != 0 {
			t.Errorf("id %q: expected no persisted entities, got %d", id, len(stub.entities))
		}
	}
}

func TestServiceDeleteLeaf(t *testing.T) {
	ctx := context.Background()
	stub := newStubStore()
	svc := catalog.NewService(stub)

	stub.add(depot("s1", "d1"), nil)

	if err := svc.Delete(ctx, depot("s1", "d1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.deleteCalls != 1 {
		t.Errorf("expected 1 delete call, got %d", stub.deleteCalls)
	}
	// Depots cannot have children, so no dependent probe runs.
	if stub.hasDescCalls != 0 {
		t.Errorf("expected no descendant probes, got %d", stub.hasDescCalls)
	}
}

func TestServiceDeleteGuardsDependents(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		target datastore.Key
		child  datastore.Key
	}{
		{"supplier with depot", supplier("s1"), depot("s1", "d1")},
		{"supplier with linked product", supplier("s1"), linkedProduct("s1", "lp1")},
		{"linked product with adjustment", linkedProduct("s1", "lp1"), priceAdjustment("s1", "lp1", "pa1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubStore()
			svc := catalog.NewService(stub)
			stub.add(tt.target, nil)
			stub.add(tt.child, nil)

			err := svc.Delete(ctx, tt.target)
			if !errors.Is(err, datastore.ErrHasDependents) {
				t.Fatalf("expected ErrHasDependents, got %v", err)
			}
			// The guard rejects before anything reaches the store's delete.
			if stub.deleteCalls != 0 {
				t.Errorf("expected no delete calls, got %d", stub.deleteCalls)
			}
		})
	}
}

func TestServiceDeleteChildlessSucceeds(t *testing.T) {
	ctx := context.Background()
	stub := newStubStore()
	svc := catalog.NewService(stub)

	stub.add(supplier("s1"), nil)

	if err := svc.Delete(ctx, supplier("s1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.deleteCalls != 1 {
		t.Errorf("expected 1 delete call, got %d", stub.deleteCalls)
	}
}

func TestServiceDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	stub := newStubStore()
	svc := catalog.NewService(stub)

	err := svc.Delete(ctx, supplier("missing"))
	if !catalog.IsNotFound(err) {
		t.Fatalf("expected a not-found error, got %v", err)
	}
	if stub.deleteCalls != 0 {
		t.Errorf("expected no delete calls, got %d", stub.deleteCalls)
	}
}

func TestServiceFindScoped(t *testing.T) {
	ctx := context.Background()
	stub := newStubStore()
	svc := catalog.NewService(stub)

	stub.add(depot("s1", "d1"), nil)
	stub.add(depot("s1", "d2"), nil)
	stub.add(depot("s2", "d3"), nil)

	got, err := svc.Find(ctx, catalog.KindDepot, supplier("s1"), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 depots, got %d", len(got))
	}
	// Created-ascending order.
	if got[0].ID() != "d1" || got[1].ID() != "d2" {
		t.Errorf("expected [d1 d2], got [%s %s]", got[0].ID(), got[1].ID())
	}
}

func TestServiceUpsertInsertFlag(t *testing.T) {
	ctx := context.Background()
	stub := newStubStore()
	svc := catalog.NewService(stub)

	_, inserted, err := svc.Upsert(ctx, supplier("s1"), map[string]any{"name": "grain"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inserted {
		t.Error("expected inserted=true on first upsert")
	}

	_, inserted, err = svc.Upsert(ctx, supplier("s1"), map[string]any{"name": "grain ltd"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted {
		t.Error("expected inserted=false on second upsert")
	}
}
