// Package repository persists the device document and announces its changes.
package repository

import "context"

// KV is a byte store holding whole values under string keys.
// Put replaces the value atomically; readers never see a partial write.
type KV interface {
	// Get returns ErrNotFound when key holds no value.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
