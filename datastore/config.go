package datastore

// Config holds configuration for the Store.
type Config struct {
	// Table is the name of the entity table.
	// Default: "catalog_entities"
	Table string

	// KindIndex is the name of the global secondary index keyed by
	// (kind, created_at). Kind-scoped queries run against it and inherit
	// their created-ascending default order from its sort key.
	// Default: "kind-created-index"
	KindIndex string
}

// DefaultConfig returns the default table and index names.
func DefaultConfig() Config {
	return Config{
		Table:     "catalog_entities",
		KindIndex: "kind-created-index",
	}
}

// validate ensures config values are usable.
func (c *Config) validate() {
	if c.Table == "" {
		c.Table = "catalog_entities"
	}
	if c.KindIndex == "" {
		c.KindIndex = "kind-created-index"
	}
}
