// Package store provides the key-value storage used for durable subscriber
// records and short-lived OAuth state slots.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the key does not exist or has expired
	ErrNotFound = errors.New("store: key not found")

	// ErrConflict indicates an Update lost the race too many times
	ErrConflict = errors.New("store: update conflict")
)

// UpdateFunc transforms the current value of a key into its next value.
// current is nil when the key does not exist yet.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is the key-value interface the rest of the service depends on.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes a value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// ConsumeOnce returns the value for key and removes it in the same
	// operation, so a second call for the same key fails with ErrNotFound.
	ConsumeOnce(ctx context.Context, key string) ([]byte, error)

	// Update applies fn to the current value of key and writes the result,
	// retrying the read-modify-write when a concurrent writer interferes.
	Update(ctx context.Context, key string, fn UpdateFunc) ([]byte, error)
}
