package redis

import "strings"

// DefaultKeyPrefix namespaces keys when no prefix is configured.
const DefaultKeyPrefix = "authpress:"

// Keyspace joins key segments under a common prefix.
type Keyspace string

// NewKeyspace returns a keyspace for prefix, falling back to DefaultKeyPrefix.
// A trailing colon is added when missing.
func NewKeyspace(prefix string) Keyspace {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return Keyspace(prefix)
}

// Key builds prefix + parts joined by ":".
func (k Keyspace) Key(parts ...string) string {
	return string(k) + strings.Join(parts, ":")
}

// Pattern returns a SCAN match pattern for every key under the given parts.
func (k Keyspace) Pattern(parts ...string) string {
	return k.Key(parts...) + "*"
}
