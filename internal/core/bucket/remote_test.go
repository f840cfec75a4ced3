package bucket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/notewire/internal/core/model"
	"github.com/notewire/notewire/internal/core/observability/log"
	"github.com/notewire/notewire/internal/core/transport"
)

// pipeConn is an in-process transport.Connection driven by the test.
type pipeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *pipeConn) Send(ctx context.Context, payload []byte) error {
	select {
	case c.out <- payload:
		return nil
	case <-c.closed:
		return transport.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *pipeConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case raw := <-c.in:
		return raw, nil
	case <-c.closed:
		return nil, transport.ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *pipeConn) RemoteAddr() string { return "pipe" }

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// push delivers a backend-originated envelope to the client.
func (c *pipeConn) push(t *testing.T, env envelope) {
	t.Helper()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	c.in <- raw
}

// sent returns the next envelope the client wrote.
func (c *pipeConn) sent(t *testing.T) envelope {
	t.Helper()
	select {
	case raw := <-c.out:
		var env envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no envelope sent")
		return envelope{}
	}
}

func newTestClient(t *testing.T) (*Client, *pipeConn) {
	t.Helper()
	conn := newPipeConn()
	client := NewClient(conn, log.Nop())
	t.Cleanup(func() { _ = client.Close() })
	return client, conn
}

func TestRemoteBucketAddRoundTrip(t *testing.T) {
	client, conn := newTestClient(t)
	b := NewRemoteBucket[model.Note](client, KindNote, nil, log.Nop())

	var sends, acks []Change
	var mu sync.Mutex
	b.Watch(Events[model.Note]{
		Send: func(change Change) {
			mu.Lock()
			defer mu.Unlock()
			sends = append(sends, change)
		},
		Acknowledge: func(_ model.EntityID, change Change) {
			mu.Lock()
			defer mu.Unlock()
			acks = append(acks, change)
		},
	})

	go func() {
		req := conn.sent(t)
		conn.push(t, envelope{
			Type:     envChange,
			Bucket:   KindNote,
			EntityID: "srv-1",
			Ccid:     req.Ccid,
			Data:     req.Data,
		})
	}()

	confirmed, err := b.Add(context.Background(), model.Note{Content: "hello", Tags: []model.TagName{}, SystemTags: []string{}})
	require.NoError(t, err)
	assert.Equal(t, model.EntityID("srv-1"), confirmed.ID)
	assert.Equal(t, "hello", confirmed.Data.Content)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sends, 1)
	require.Len(t, acks, 1)
	assert.Equal(t, sends[0].Ccid, acks[0].Ccid)
	assert.Equal(t, model.EntityID("srv-1"), acks[0].EntityID)
}

func TestRemoteBucketSyncUpdateWaitsForAck(t *testing.T) {
	client, conn := newTestClient(t)
	b := NewRemoteBucket[model.Note](client, KindNote, nil, log.Nop())

	go func() {
		req := conn.sent(t)
		assert.Equal(t, envChange, req.Type)
		assert.Equal(t, model.EntityID("note-1"), req.EntityID)
		assert.NotZero(t, req.Checksum)
		conn.push(t, envelope{Type: envAck, Bucket: KindNote, EntityID: "note-1", Ccid: req.Ccid})
	}()

	err := b.Update(context.Background(), "note-1", model.Note{Content: "v2"}, true)
	require.NoError(t, err)
}

func TestRemoteBucketGetUnknown(t *testing.T) {
	client, conn := newTestClient(t)
	b := NewRemoteBucket[model.Note](client, KindNote, nil, log.Nop())

	go func() {
		req := conn.sent(t)
		conn.push(t, envelope{Type: envEntity, Bucket: KindNote, Ccid: req.Ccid})
	}()

	_, err := b.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestRemoteBucketRevisions(t *testing.T) {
	client, conn := newTestClient(t)
	b := NewRemoteBucket[model.Note](client, KindNote, nil, log.Nop())

	history, err := json.Marshal([]Revision[model.Note]{
		{Version: 1, Data: model.Note{Content: "v1"}},
		{Version: 2, Data: model.Note{Content: "v2"}},
	})
	require.NoError(t, err)

	go func() {
		req := conn.sent(t)
		assert.Equal(t, envRevisions, req.Type)
		conn.push(t, envelope{Type: envRevisions, Bucket: KindNote, Ccid: req.Ccid, Revisions: history})
	}()

	revs, err := b.Revisions(context.Background(), "note-1")
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "v1", revs[0].Data.Content)
}

func TestRemoteBucketRejectsInvalidInbound(t *testing.T) {
	client, conn := newTestClient(t)
	b := NewRemoteBucket[model.Note](client, KindNote, NoteSchema(), log.Nop())

	updates := make(chan model.EntityID, 2)
	b.Watch(Events[model.Note]{
		Update: func(id model.EntityID, _ model.Note, _ map[string]any) {
			updates <- id
		},
	})

	// missing the required fields, must be dropped
	conn.push(t, envelope{
		Type:     envUpdate,
		Bucket:   KindNote,
		EntityID: "bad",
		Data:     json.RawMessage(`{"unexpected": true}`),
	})

	valid, err := json.Marshal(model.NewNote())
	require.NoError(t, err)
	conn.push(t, envelope{Type: envUpdate, Bucket: KindNote, EntityID: "good", Data: valid})

	select {
	case id := <-updates:
		assert.Equal(t, model.EntityID("good"), id)
	case <-time.After(time.Second):
		t.Fatal("valid update not delivered")
	}
	select {
	case id := <-updates:
		t.Fatalf("unexpected update for %s", id)
	default:
	}
}

func TestRemoteBucketInboundAck(t *testing.T) {
	client, conn := newTestClient(t)
	b := NewRemoteBucket[model.Note](client, KindNote, nil, log.Nop())

	acks := make(chan Change, 1)
	b.Watch(Events[model.Note]{
		Acknowledge: func(_ model.EntityID, change Change) { acks <- change },
	})

	conn.push(t, envelope{Type: envAck, Bucket: KindNote, EntityID: "note-1", Ccid: "ccid-1", Op: "M"})

	select {
	case change := <-acks:
		assert.Equal(t, model.EntityID("note-1"), change.EntityID)
		assert.Equal(t, "ccid-1", change.Ccid)
	case <-time.After(time.Second):
		t.Fatal("ack not delivered")
	}
}

func TestClientAccountName(t *testing.T) {
	client, conn := newTestClient(t)

	conn.push(t, envelope{Type: envAuthorized, AccountName: "user@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	name, err := client.AccountName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", name)
}

func TestClientUnauthorizedCallback(t *testing.T) {
	client, conn := newTestClient(t)

	rejected := make(chan struct{})
	client.OnUnauthorized(func() { close(rejected) })

	conn.push(t, envelope{Type: envUnauthorized})

	select {
	case <-rejected:
	case <-time.After(time.Second):
		t.Fatal("unauthorized callback not invoked")
	}
}

func TestClientCloseFailsPendingRoundTrips(t *testing.T) {
	client, conn := newTestClient(t)
	b := NewRemoteBucket[model.Note](client, KindNote, nil, log.Nop())

	errCh := make(chan error, 1)
	go func() {
		_, err := b.Get(context.Background(), "note-1")
		errCh <- err
	}()

	// wait for the request to be in flight before closing
	conn.sent(t)
	require.NoError(t, client.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClientClosed)
	case <-time.After(time.Second):
		t.Fatal("pending round trip not failed")
	}
}
