// Package storage persists whole JSON collections ("users", "orders") on a
// pluggable backend. Every mutation rewrites the full collection.
package storage

import (
	"context"
	"fmt"
)

// Backend stores one opaque JSON document per collection name.
// Load returns (nil, nil) when the collection was never written.
type Backend interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
}

// Driver names accepted by STORAGE_DRIVER.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

// Collection names.
const (
	Users    = "users"
	Orders   = "orders"
	Sessions = "session"
)

func loadError(name string, err error) error {
	return fmt.Errorf("load %s: %w", name, err)
}

func saveError(name string, err error) error {
	return fmt.Errorf("save %s: %w", name, err)
}
