// Package storage provides the key-addressed object store abstraction that
// all record persistence is layered on.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no object exists at the requested key.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a stored object without carrying its contents.
type ObjectInfo struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ObjectStore is a flat, key-addressed blob store. There are no transactions
// and no compare-and-swap: the backing service is an eventually-consistent
// object store, and callers must not assume read-after-write ordering across
// processes. Keys are slash-separated paths; List matches by key prefix.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}
