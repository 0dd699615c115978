// Package datastore provides a path-addressed entity layer on top of DynamoDB.
//
// Entities are located by hierarchical keys: ordered kind/identifier pairs
// running from a root entity down to the entity itself. The physical layout is
// a single table where the partition key is the encoded root pair and the sort
// key is the encoded full path, so "has ancestor X" resolves to a begins_with
// query over one partition. Kind-scoped queries run against a global secondary
// index keyed by kind and creation instant, which makes the default
// created-ascending order a property of the index rather than of the client.
//
// # Operations
//
// The [Store] exposes the generic persistence contract:
//
//   - [Store.Create] - insert-mode put, generates the leaf identifier when absent
//   - [Store.Get] / [Store.GetMulti] - point and batched reads
//   - [Store.Upsert] - read-then-write merge preserving creation metadata
//   - [Store.Delete] - idempotent removal
//   - [Store.Find] / [Store.FindKeys] - kind-, ancestor- or parent-scoped queries
//   - [Store.HasDescendants] - strict-descendant existence probe
//
// Upsert is deliberately not atomic: two concurrent upserts to the same key may
// both observe the key as absent and both write an insert, with the last writer
// winning. The underlying store offers conditional writes, but callers of this
// layer accept last-write-wins semantics for merge updates.
//
// # Errors
//
//   - [ErrNotFound] - entity does not exist
//   - [ErrAlreadyExists] - insert-mode put hit an existing key
//   - [ErrHasDependents] - caller-enforced guard against deleting a parent with children
//   - [MissingIdentifierError] - key construction with a missing required ancestor id
//   - [InvalidIdentifierError] - identifier that cannot be encoded into a key path
//   - [PersistenceError] - underlying store call failed; never retried here
package datastore
