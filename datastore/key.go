package datastore

import (
	"github.com/BigWednesdayIO/suppliers-api-sub000/internal/keypath"
)

// PathPair is one element of a key path: an entity kind and its identifier.
type PathPair struct {
	Kind string
	ID   string
}

// Key is an ordered sequence of kind/identifier pairs locating an entity,
// root first. A strict contiguous prefix of a key is one of its ancestors.
//
// A key whose leaf identifier is empty is incomplete: it addresses a create
// destination rather than an existing entity.
type Key []PathPair

// NewKey builds a key from path pairs, root first.
func NewKey(pairs ...PathPair) Key {
	return Key(pairs)
}

// Root returns the root pair of the key.
func (k Key) Root() PathPair {
	return k[0]
}

// Leaf returns the final pair of the key.
func (k Key) Leaf() PathPair {
	return k[len(k)-1]
}

// Kind returns the kind of the entity the key addresses.
func (k Key) Kind() string {
	return k.Leaf().Kind
}

// ID returns the identifier of the entity the key addresses.
func (k Key) ID() string {
	return k.Leaf().ID
}

// Parent returns the key of the immediate ancestor, or nil for a root key.
func (k Key) Parent() Key {
	if len(k) <= 1 {
		return nil
	}
	return k[:len(k)-1]
}

// Complete reports whether the key has a leaf identifier.
func (k Key) Complete() bool {
	return len(k) > 0 && k.Leaf().ID != ""
}

// WithID returns a copy of the key with the leaf identifier set.
func (k Key) WithID(id string) Key {
	out := make(Key, len(k))
	copy(out, k)
	out[len(out)-1].ID = id
	return out
}

// Equal reports structural equality of two keys.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// HasAncestor reports whether a is a strict contiguous prefix of k.
func (k Key) HasAncestor(a Key) bool {
	if len(a) == 0 || len(a) >= len(k) {
		return false
	}
	for i := range a {
		if k[i] != a[i] {
			return false
		}
	}
	return true
}

// String returns the encoded path, e.g. "supplier#s1/depot#d1".
func (k Key) String() string {
	return keypath.Encode(k.pairs())
}

func (k Key) pairs() [][2]string {
	out := make([][2]string, len(k))
	for i, p := range k {
		out[i] = [2]string{p.Kind, p.ID}
	}
	return out
}

// ParseKey decodes an encoded path back into a key.
func ParseKey(encoded string) (Key, error) {
	pairs, err := keypath.Parse(encoded)
	if err != nil {
		return nil, err
	}
	k := make(Key, len(pairs))
	for i, p := range pairs {
		k[i] = PathPair{Kind: p[0], ID: p[1]}
	}
	return k, nil
}
