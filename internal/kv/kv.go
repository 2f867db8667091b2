// Package kv provides the flat string key-value store the application
// state is persisted into. The store is opaque to callers: one key maps
// to one string value, nothing more.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}
