package bucket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/notewire/notewire/internal/core/model"
)

var (
	_ Bucket[model.Note]  = (*MemoryBucket[model.Note])(nil)
	_ Watcher[model.Note] = (*MemoryBucket[model.Note])(nil)
)

// MemoryBucket is a bucket backed by process memory. It acknowledges every
// change immediately and keeps full revision history. Serves as the
// preferences ghost store and as the backend double in tests.
type MemoryBucket[T any] struct {
	mu        sync.Mutex
	kind      Kind
	data      map[model.EntityID]T
	revisions map[model.EntityID][]Revision[T]
	events    Events[T]
}

// NewMemoryBucket creates an empty in-memory bucket.
func NewMemoryBucket[T any](kind Kind) *MemoryBucket[T] {
	return &MemoryBucket[T]{
		kind:      kind,
		data:      make(map[model.EntityID]T),
		revisions: make(map[model.EntityID][]Revision[T]),
	}
}

// Watch registers notification callbacks. Replaces any prior registration.
func (b *MemoryBucket[T]) Watch(events Events[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = events
}

// Add stores data under a freshly assigned id.
func (b *MemoryBucket[T]) Add(_ context.Context, data T) (Confirmed[T], error) {
	id := model.EntityID(uuid.NewString())

	b.mu.Lock()
	b.data[id] = data
	b.appendRevisionLocked(id, data)
	b.mu.Unlock()

	return Confirmed[T]{ID: id, Data: data}, nil
}

// Get returns the entity under id.
func (b *MemoryBucket[T]) Get(_ context.Context, id model.EntityID) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.data[id]
	if !ok {
		var zero T
		return zero, ErrEntityNotFound
	}
	return data, nil
}

// Update replaces the entity under id and records a revision.
func (b *MemoryBucket[T]) Update(_ context.Context, id model.EntityID, data T, _ bool) error {
	b.mu.Lock()
	b.data[id] = data
	b.appendRevisionLocked(id, data)
	change := Change{EntityID: id, Ccid: uuid.NewString(), Op: "M", Checksum: checksum(data)}
	events := b.events
	b.mu.Unlock()

	emitChange(events, id, change)
	return nil
}

// Touch re-synchronizes the entity's current state. Unknown ids are ignored,
// matching the silent-abandonment policy for stale syncs.
func (b *MemoryBucket[T]) Touch(id model.EntityID) {
	b.mu.Lock()
	data, ok := b.data[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	b.appendRevisionLocked(id, data)
	change := Change{EntityID: id, Ccid: uuid.NewString(), Op: "M", Checksum: checksum(data)}
	events := b.events
	b.mu.Unlock()

	emitChange(events, id, change)
}

// Remove deletes the entity.
func (b *MemoryBucket[T]) Remove(id model.EntityID) {
	b.mu.Lock()
	_, ok := b.data[id]
	delete(b.data, id)
	delete(b.revisions, id)
	events := b.events
	b.mu.Unlock()

	if ok {
		emitChange(events, id, Change{EntityID: id, Ccid: uuid.NewString(), Op: "-"})
	}
}

// Revisions returns the entity's history, ascending by version.
func (b *MemoryBucket[T]) Revisions(_ context.Context, id model.EntityID) ([]Revision[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Revision[T](nil), b.revisions[id]...), nil
}

// Seed inserts an entity without emitting events. Used to pre-populate the
// pre-existing preferences record and test fixtures.
func (b *MemoryBucket[T]) Seed(id model.EntityID, data T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[id] = data
	b.appendRevisionLocked(id, data)
}

// PushRemoteUpdate injects a remote-origin change, as another client's edit
// arriving over the wire would.
func (b *MemoryBucket[T]) PushRemoteUpdate(id model.EntityID, data T, remoteInfo map[string]any) {
	b.mu.Lock()
	b.data[id] = data
	b.appendRevisionLocked(id, data)
	events := b.events
	b.mu.Unlock()

	if events.Update != nil {
		events.Update(id, data, remoteInfo)
	}
}

func (b *MemoryBucket[T]) appendRevisionLocked(id model.EntityID, data T) {
	b.revisions[id] = append(b.revisions[id], Revision[T]{
		Version: len(b.revisions[id]) + 1,
		Data:    data,
	})
}

func emitChange[T any](events Events[T], id model.EntityID, change Change) {
	if events.Send != nil {
		events.Send(change)
	}
	if events.Acknowledge != nil {
		events.Acknowledge(id, change)
	}
}

// checksum hashes an entity's canonical JSON form.
func checksum(data any) uint64 {
	raw, err := json.Marshal(data)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(raw)
}
