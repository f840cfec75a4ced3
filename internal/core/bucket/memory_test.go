package bucket

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/notewire/internal/core/model"
)

// eventLog captures bucket notifications for assertions.
type eventLog struct {
	mu    sync.Mutex
	sends []Change
	acks  []Change
}

func (l *eventLog) watch(b *MemoryBucket[model.Note]) {
	b.Watch(Events[model.Note]{
		Send: func(change Change) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.sends = append(l.sends, change)
		},
		Acknowledge: func(_ model.EntityID, change Change) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.acks = append(l.acks, change)
		},
	})
}

func (l *eventLog) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sends), len(l.acks)
}

func TestMemoryBucketAddAssignsID(t *testing.T) {
	b := NewMemoryBucket[model.Note](KindNote)

	confirmed, err := b.Add(context.Background(), model.Note{Content: "hello"})
	require.NoError(t, err)
	require.NotEmpty(t, confirmed.ID)

	got, err := b.Get(context.Background(), confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
}

func TestMemoryBucketGetUnknown(t *testing.T) {
	b := NewMemoryBucket[model.Note](KindNote)

	_, err := b.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestMemoryBucketRevisionHistory(t *testing.T) {
	b := NewMemoryBucket[model.Note](KindNote)
	b.Seed("note-1", model.Note{Content: "v1"})

	require.NoError(t, b.Update(context.Background(), "note-1", model.Note{Content: "v2"}, true))
	b.Touch("note-1")

	revs, err := b.Revisions(context.Background(), "note-1")
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.Equal(t, 1, revs[0].Version)
	assert.Equal(t, "v1", revs[0].Data.Content)
	assert.Equal(t, 3, revs[2].Version)
	assert.Equal(t, "v2", revs[2].Data.Content)
}

func TestMemoryBucketTouchUnknownIsSilent(t *testing.T) {
	b := NewMemoryBucket[model.Note](KindNote)
	events := &eventLog{}
	events.watch(b)

	b.Touch("missing")

	sends, acks := events.counts()
	assert.Zero(t, sends)
	assert.Zero(t, acks)
}

func TestMemoryBucketChangeEvents(t *testing.T) {
	b := NewMemoryBucket[model.Note](KindNote)
	b.Seed("note-1", model.Note{Content: "v1"})
	events := &eventLog{}
	events.watch(b)

	require.NoError(t, b.Update(context.Background(), "note-1", model.Note{Content: "v2"}, true))
	b.Touch("note-1")
	b.Remove("note-1")

	sends, acks := events.counts()
	assert.Equal(t, 3, sends)
	assert.Equal(t, 3, acks)

	_, err := b.Get(context.Background(), "note-1")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestMemoryBucketSeedIsSilent(t *testing.T) {
	b := NewMemoryBucket[model.Note](KindNote)
	events := &eventLog{}
	events.watch(b)

	b.Seed("note-1", model.Note{Content: "v1"})

	sends, acks := events.counts()
	assert.Zero(t, sends)
	assert.Zero(t, acks)
}

func TestMemoryBucketPushRemoteUpdate(t *testing.T) {
	b := NewMemoryBucket[model.Note](KindNote)
	var gotID model.EntityID
	var gotInfo map[string]any
	b.Watch(Events[model.Note]{
		Update: func(id model.EntityID, _ model.Note, remoteInfo map[string]any) {
			gotID = id
			gotInfo = remoteInfo
		},
	})

	b.PushRemoteUpdate("note-1", model.Note{Content: "remote"}, map[string]any{"clientId": "other"})

	assert.Equal(t, model.EntityID("note-1"), gotID)
	assert.Equal(t, "other", gotInfo["clientId"])

	got, err := b.Get(context.Background(), "note-1")
	require.NoError(t, err)
	assert.Equal(t, "remote", got.Content)
}
