package datastore

// Filter is a single-field equality predicate. Equality is the only operator
// the store supports; disjunctions and ranges are emulated by callers.
type Filter struct {
	Field string
	Value any
}

// Query defines parameters for finding entities.
//
// Exactly one scope applies per query:
//   - Ancestor, a rooted key, restricts results to its strict descendants and
//     runs as a single-partition begins_with query;
//   - Parent, a bare kind/id pair, restricts results to immediate children of
//     that entity wherever it sits in the hierarchy, and runs as a kind query
//     filtered on the denormalized parent attribute;
//   - neither restricts by position, matching every entity of Kind.
//
// Every execution is a fresh query over current state. There is no snapshot
// isolation across repeated or paginated calls.
type Query struct {
	// Kind is the entity kind to match. Required unless Ancestor is set.
	Kind string

	// Ancestor scopes results to strict descendants of this rooted key.
	Ancestor Key

	// Parent scopes results to immediate children of this kind/id pair.
	Parent PathPair

	// Filters are ANDed equality predicates over entity attributes.
	Filters []Filter

	// Offset skips the first n matches. Applied client-side.
	Offset int

	// Limit caps the number of returned matches (0 = no cap).
	Limit int
}
