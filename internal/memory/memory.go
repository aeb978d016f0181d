// Package memory provides the namespace-scoped key/value capability the
// coordinator uses for optional audit persistence. The coordinator must
// function unchanged with the Noop implementation.
package memory

import "time"

// Entry is one stored record.
type Entry struct {
	// Namespace scopes the entry, usually per swarm.
	Namespace string `json:"namespace"`
	// Key identifies the entry within its namespace.
	Key string `json:"key"`
	// Value is the stored payload, typically JSON.
	Value []byte `json:"value"`
	// CreatedAt is when the entry was stored.
	CreatedAt time.Time `json:"created_at"`
}

// Store is the memory capability consumed by the coordinator.
type Store interface {
	// Put stores a value under namespace/key, replacing any previous value.
	Put(namespace, key string, value []byte) error
	// Get retrieves the value for namespace/key. Missing keys return
	// (nil, nil).
	Get(namespace, key string) ([]byte, error)
	// Query returns entries in a namespace whose keys start with prefix,
	// newest first, capped at limit (0 means no cap).
	Query(namespace, prefix string, limit int) ([]Entry, error)
	// Close releases underlying resources.
	Close() error
}

// Noop discards writes and returns nothing. It satisfies Store for
// swarms that run without audit persistence.
type Noop struct{}

// Put discards the value.
func (Noop) Put(namespace, key string, value []byte) error { return nil }

// Get always misses.
func (Noop) Get(namespace, key string) ([]byte, error) { return nil, nil }

// Query always returns no entries.
func (Noop) Query(namespace, prefix string, limit int) ([]Entry, error) { return nil, nil }

// Close is a no-op.
func (Noop) Close() error { return nil }
