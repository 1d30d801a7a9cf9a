// Package storage defines the durable key-value store used for session
// rehydration, plus an at-rest sealing wrapper.
package storage

import "context"

// Store is a durable key -> string store surviving process restarts.
type Store interface {
	// Get returns the value for key, or errs.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Put writes or replaces the value for key.
	Put(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
