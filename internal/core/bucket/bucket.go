// Package bucket exposes the backend synchronization primitive the engine
// drives: one bucket per entity kind, with optimistic creates, touch-based
// re-sync, revision history, and remote change notifications.
package bucket

import (
	"context"
	"errors"

	"github.com/notewire/notewire/internal/core/model"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrClientClosed   = errors.New("bucket client is closed")
	ErrUnauthorized   = errors.New("session is unauthorized")
)

// Kind names a bucket.
type Kind string

const (
	KindNote        Kind = "note"
	KindTag         Kind = "tag"
	KindPreferences Kind = "preferences"
)

// Confirmed is the backend's answer to an Add: the canonical id it assigned
// and the data as stored.
type Confirmed[T any] struct {
	ID   model.EntityID
	Data T
}

// Revision is one historical version of an entity.
type Revision[T any] struct {
	Version int `json:"version"`
	Data    T   `json:"data"`
}

// Change describes one local mutation in flight to the backend.
type Change struct {
	EntityID model.EntityID
	Ccid     string
	Op       string // "M" modify, "-" remove
	Checksum uint64
}

// Bucket is the per-kind backend capability. Touch and Remove are
// fire-and-forget; the rest block on the backend round trip.
type Bucket[T any] interface {
	Add(ctx context.Context, data T) (Confirmed[T], error)
	Get(ctx context.Context, id model.EntityID) (T, error)
	Update(ctx context.Context, id model.EntityID, data T, sync bool) error
	Touch(id model.EntityID)
	Remove(id model.EntityID)
	Revisions(ctx context.Context, id model.EntityID) ([]Revision[T], error)
}

// Events carries the notification callbacks a bucket consumer may register.
// Nil callbacks are skipped.
type Events[T any] struct {
	Update      func(id model.EntityID, data T, remoteInfo map[string]any)
	Acknowledge func(id model.EntityID, change Change)
	Send        func(change Change)
}

// Watcher is implemented by buckets that surface remote notifications.
type Watcher[T any] interface {
	Watch(events Events[T])
}
