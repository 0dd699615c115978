package datastore

import (
	"encoding/json"
	"time"
)

// Entity is a stored attribute map addressed by a hierarchical key. Attrs
// holds the caller-supplied attributes; identifier and metadata live outside
// the map so the store controls them.
type Entity struct {
	Key     Key
	Attrs   map[string]any
	Created time.Time
	Updated time.Time
}

// ID returns the entity's identifier, the last segment of its key.
func (e Entity) ID() string {
	return e.Key.ID()
}

// entityMetadata is the wire shape of the _metadata block.
type entityMetadata struct {
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// MarshalJSON renders the entity in its response shape: the attributes
// flattened at the top level plus "id" and a "_metadata" block.
func (e Entity) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(e.Attrs)+2)
	for k, v := range e.Attrs {
		obj[k] = v
	}
	obj["id"] = e.ID()
	obj["_metadata"] = entityMetadata{Created: e.Created, Updated: e.Updated}
	return json.Marshal(obj)
}

// mergeAttrs overlays incoming attributes onto existing ones without mutating
// either map. Attributes absent from incoming keep their stored value.
func mergeAttrs(existing, incoming map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}
