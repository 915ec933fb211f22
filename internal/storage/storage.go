// Package storage persists the session entries that a browser would keep
// in local storage. Every backend applies a batch of writes atomically so
// the token and the user it belongs to never drift apart.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("storage: entry not found")

type Driver string

const (
	DriverFile   Driver = "file"
	DriverSQLite Driver = "sqlite"
	DriverMemory Driver = "memory"
)

// Store is a namespaced string key/value store.
type Store interface {
	// Get returns ErrNotFound when the key has never been written or was
	// deleted.
	Get(ctx context.Context, key string) (string, error)
	// Set writes all entries or none of them.
	Set(ctx context.Context, entries map[string]string) error
	// Delete removes all keys or none of them. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Open builds the store for the given driver. Path is a directory for the
// file driver and a database file for sqlite; an empty path selects the
// default location under the user's config directory.
func Open(driver Driver, path string, namespace string) (Store, error) {
	namespace = SanitiseNamespace(namespace)

	switch Driver(strings.ToLower(string(driver))) {
	case DriverFile, "":
		return NewFileStore(path, namespace)
	case DriverSQLite:
		return NewSQLStore(path, namespace)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}

// SanitiseNamespace turns a backend host such as "api.example.com:8443"
// into something safe to use as a file name.
func SanitiseNamespace(namespace string) string {
	namespace = strings.TrimSpace(strings.ToLower(namespace))
	if len(namespace) == 0 {
		return "default"
	}
	replacer := strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_")
	return replacer.Replace(namespace)
}
