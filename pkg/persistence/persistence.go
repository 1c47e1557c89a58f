/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

// Package persistence defines the key/blob stores backing the submission
// and plugin registries. Two drivers implement these interfaces: an
// embedded sqlite store and a distributed etcd store. Records are opaque
// JSON blobs; callers own the codec.
package persistence

// Store is a keyed blob store. Keys are namespaced by prefix: submission
// records under "kj-", plugin records under "plugin-".
type Store interface {
	// Put inserts or replaces the record under key.
	Put(key string, value []byte) error
	// Get returns the record under key, or a nil slice when absent.
	Get(key string) ([]byte, error)
	// Delete removes the record under key. Deleting an absent key is
	// not an error.
	Delete(key string) error
	// DeleteAll removes every record whose key starts with prefix.
	DeleteAll(prefix string) error
	// GetAll returns every record whose key starts with prefix, keyed
	// by full key.
	GetAll(prefix string) (map[string][]byte, error)
	// Close releases the underlying connection.
	Close() error
}
