// Package keypath encodes hierarchical entity key paths into the partition
// and sort key strings used by the single-table DynamoDB layout.
package keypath

import (
	"fmt"
	"strings"
)

const (
	// pairSep separates a kind from its identifier within one path element.
	pairSep = "#"
	// pathSep separates path elements.
	pathSep = "/"
)

// Encode renders a key path as a sort key string.
// Each pair is [kind, id]; pairs are ordered root first.
// Example: [[supplier s1] [depot d1]] -> "supplier#s1/depot#d1".
func Encode(pairs [][2]string) string {
	elems := make([]string, len(pairs))
	for i, p := range pairs {
		elems[i] = p[0] + pairSep + p[1]
	}
	return strings.Join(elems, pathSep)
}

// EncodePair renders a single kind/id pair.
func EncodePair(kind, id string) string {
	return kind + pairSep + id
}

// RootPK returns the partition key for a path: its root pair.
func RootPK(pairs [][2]string) string {
	if len(pairs) == 0 {
		return ""
	}
	return EncodePair(pairs[0][0], pairs[0][1])
}

// DescendantPrefix returns the sort key prefix matched by all strict
// descendants of the given encoded path.
func DescendantPrefix(encoded string) string {
	return encoded + pathSep
}

// Parse decodes a sort key string back into kind/id pairs.
func Parse(encoded string) ([][2]string, error) {
	if encoded == "" {
		return nil, fmt.Errorf("keypath: empty path")
	}
	elems := strings.Split(encoded, pathSep)
	pairs := make([][2]string, len(elems))
	for i, e := range elems {
		kind, id, ok := strings.Cut(e, pairSep)
		if !ok || kind == "" || id == "" {
			return nil, fmt.Errorf("keypath: malformed element %q in %q", e, encoded)
		}
		pairs[i] = [2]string{kind, id}
	}
	return pairs, nil
}

// ValidID reports whether an identifier is safe to embed in a path.
// Identifiers must be non-empty and must not contain path separators.
func ValidID(id string) bool {
	return id != "" && !strings.ContainsAny(id, pairSep+pathSep)
}
