package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
)

// Collection is the in-memory snapshot of one persisted collection.
//
// Mutations are serialized: the write lock is held while the change is
// applied to a copy and the whole collection is saved, and the snapshot is
// only replaced after the save succeeds. Readers get deep copies.
type Collection[T any] struct {
	mu      sync.RWMutex
	backend Backend
	name    string
	clone   func(T) T
	items   []T
}

func NewCollection[T any](backend Backend, name string, clone func(T) T) *Collection[T] {
	return &Collection[T]{backend: backend, name: name, clone: clone}
}

func (c *Collection[T]) Name() string { return c.name }

// Load replaces the snapshot with the persisted state. A collection that was
// never written loads empty.
func (c *Collection[T]) Load(ctx context.Context) error {
	data, err := c.backend.Load(ctx, c.name)
	if err != nil {
		return apperr.Storage(err)
	}

	var items []T
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &items); err != nil {
			return apperr.Storage(fmt.Errorf("decode %s: %w", c.name, err))
		}
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

// Snapshot returns a deep copy of every record in stored order.
func (c *Collection[T]) Snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cloneAll(c.items)
}

// Find returns a copy of the first record matching fn.
func (c *Collection[T]) Find(fn func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if fn(item) {
			return c.clone(item), true
		}
	}
	var zero T
	return zero, false
}

// Read runs fn under the read lock. fn must not keep or modify items.
func (c *Collection[T]) Read(fn func(items []T)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.items)
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Mutate applies fn to a copy of the collection and persists the result.
// An error from fn aborts without saving. A save failure is returned as a
// storage error and the previous snapshot stays in place.
func (c *Collection[T]) Mutate(ctx context.Context, fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fn(c.cloneAll(c.items))
	if err != nil {
		return err
	}
	if next == nil {
		next = []T{}
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return apperr.Storage(fmt.Errorf("encode %s: %w", c.name, err))
	}
	if err := c.backend.Save(ctx, c.name, data); err != nil {
		return apperr.Storage(err)
	}

	c.items = next
	return nil
}

func (c *Collection[T]) cloneAll(items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = c.clone(item)
	}
	return out
}
