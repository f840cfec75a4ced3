package bucket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/notewire/notewire/internal/core/model"
	"github.com/notewire/notewire/internal/core/observability/log"
)

var (
	_ Bucket[model.Note]  = (*RemoteBucket[model.Note])(nil)
	_ Watcher[model.Note] = (*RemoteBucket[model.Note])(nil)
)

// RemoteBucket speaks the change-envelope protocol for one entity kind over a
// shared Client. Inbound payloads are schema-validated before they reach
// consumers.
type RemoteBucket[T any] struct {
	client *Client
	kind   Kind
	schema *jsonschema.Schema // nil disables validation
	logger log.Log

	mu     sync.Mutex
	events Events[T]

	// fire-and-forget ops still need a bounded write
	sendTimeout time.Duration
}

// NewRemoteBucket creates a bucket for kind and registers it on the client.
func NewRemoteBucket[T any](client *Client, kind Kind, schema *jsonschema.Schema, logger log.Log) *RemoteBucket[T] {
	b := &RemoteBucket[T]{
		client:      client,
		kind:        kind,
		schema:      schema,
		logger:      logger.With(log.String("bucket", string(kind))),
		sendTimeout: 10 * time.Second,
	}
	client.subscribe(kind, b.handleInbound)
	return b
}

// Watch registers notification callbacks. Replaces any prior registration.
func (b *RemoteBucket[T]) Watch(events Events[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = events
}

// Add creates the entity and returns the backend-assigned id and data.
func (b *RemoteBucket[T]) Add(ctx context.Context, data T) (Confirmed[T], error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Confirmed[T]{}, fmt.Errorf("marshal %s: %w", b.kind, err)
	}

	change := Change{Ccid: uuid.NewString(), Op: "M", Checksum: checksum(data)}
	b.emitSend(change)

	resp, err := b.client.roundTrip(ctx, envelope{
		Type:     envChange,
		Bucket:   b.kind,
		Ccid:     change.Ccid,
		Op:       change.Op,
		Data:     raw,
		Checksum: change.Checksum,
	})
	if err != nil {
		return Confirmed[T]{}, err
	}

	var confirmed T
	if err = json.Unmarshal(resp.Data, &confirmed); err != nil {
		return Confirmed[T]{}, fmt.Errorf("unmarshal confirmed %s: %w", b.kind, err)
	}

	change.EntityID = resp.EntityID
	b.emitAcknowledge(resp.EntityID, change)

	return Confirmed[T]{ID: resp.EntityID, Data: confirmed}, nil
}

// Get fetches the entity's current backend state.
func (b *RemoteBucket[T]) Get(ctx context.Context, id model.EntityID) (T, error) {
	var data T
	resp, err := b.client.roundTrip(ctx, envelope{
		Type:     envGet,
		Bucket:   b.kind,
		EntityID: id,
		Ccid:     uuid.NewString(),
	})
	if err != nil {
		return data, err
	}
	if len(resp.Data) == 0 {
		return data, ErrEntityNotFound
	}
	if err = json.Unmarshal(resp.Data, &data); err != nil {
		return data, fmt.Errorf("unmarshal %s: %w", b.kind, err)
	}
	return data, nil
}

// Update writes new entity data. With sync set, the call blocks until the
// backend acknowledges; otherwise the change is sent and acknowledged
// asynchronously.
func (b *RemoteBucket[T]) Update(ctx context.Context, id model.EntityID, data T, sync bool) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", b.kind, err)
	}

	change := Change{EntityID: id, Ccid: uuid.NewString(), Op: "M", Checksum: checksum(data)}
	env := envelope{
		Type:     envChange,
		Bucket:   b.kind,
		EntityID: id,
		Ccid:     change.Ccid,
		Op:       change.Op,
		Data:     raw,
		Checksum: change.Checksum,
	}

	b.emitSend(change)

	if sync {
		if _, err = b.client.roundTrip(ctx, env); err != nil {
			return err
		}
		b.emitAcknowledge(id, change)
		return nil
	}
	return b.client.send(ctx, env)
}

// Touch asks the backend to re-sync the entity without new field values.
func (b *RemoteBucket[T]) Touch(id model.EntityID) {
	change := Change{EntityID: id, Ccid: uuid.NewString(), Op: "M"}
	b.emitSend(change)

	ctx, cancel := context.WithTimeout(context.Background(), b.sendTimeout)
	defer cancel()

	err := b.client.send(ctx, envelope{
		Type:     envTouch,
		Bucket:   b.kind,
		EntityID: id,
		Ccid:     change.Ccid,
	})
	if err != nil {
		b.logger.Warn("Touch failed", log.String("entity_id", string(id)), log.Error(err))
	}
}

// Remove deletes the entity from the backend.
func (b *RemoteBucket[T]) Remove(id model.EntityID) {
	change := Change{EntityID: id, Ccid: uuid.NewString(), Op: "-"}
	b.emitSend(change)

	ctx, cancel := context.WithTimeout(context.Background(), b.sendTimeout)
	defer cancel()

	err := b.client.send(ctx, envelope{
		Type:     envChange,
		Bucket:   b.kind,
		EntityID: id,
		Ccid:     change.Ccid,
		Op:       change.Op,
	})
	if err != nil {
		b.logger.Warn("Remove failed", log.String("entity_id", string(id)), log.Error(err))
	}
}

// Revisions fetches the entity's history.
func (b *RemoteBucket[T]) Revisions(ctx context.Context, id model.EntityID) ([]Revision[T], error) {
	resp, err := b.client.roundTrip(ctx, envelope{
		Type:     envRevisions,
		Bucket:   b.kind,
		EntityID: id,
		Ccid:     uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	var revisions []Revision[T]
	if len(resp.Revisions) > 0 {
		if err = json.Unmarshal(resp.Revisions, &revisions); err != nil {
			return nil, fmt.Errorf("unmarshal %s revisions: %w", b.kind, err)
		}
	}
	return revisions, nil
}

// handleInbound routes server-initiated envelopes for this bucket.
func (b *RemoteBucket[T]) handleInbound(env envelope) {
	switch env.Type {
	case envUpdate, envEntity:
		if err := b.validate(env.Data); err != nil {
			b.logger.Warn("Rejecting remote payload",
				log.String("entity_id", string(env.EntityID)),
				log.Error(err))
			return
		}
		var data T
		if err := json.Unmarshal(env.Data, &data); err != nil {
			b.logger.Warn("Dropping undecodable remote payload",
				log.String("entity_id", string(env.EntityID)),
				log.Error(err))
			return
		}
		b.mu.Lock()
		update := b.events.Update
		b.mu.Unlock()
		if update != nil {
			update(env.EntityID, data, env.RemoteInfo)
		}

	case envAck:
		b.emitAcknowledge(env.EntityID, Change{
			EntityID: env.EntityID,
			Ccid:     env.Ccid,
			Op:       env.Op,
			Checksum: env.Checksum,
		})

	default:
		b.logger.Debug("Ignoring envelope", log.String("type", env.Type))
	}
}

// validate checks a remote payload against the bucket schema, when set.
func (b *RemoteBucket[T]) validate(raw json.RawMessage) error {
	if b.schema == nil || len(raw) == 0 {
		return nil
	}
	doc, err := jsonschema.UnmarshalJSON(bytesReader(raw))
	if err != nil {
		return err
	}
	return b.schema.Validate(doc)
}

func (b *RemoteBucket[T]) emitSend(change Change) {
	b.mu.Lock()
	send := b.events.Send
	b.mu.Unlock()
	if send != nil {
		send(change)
	}
}

func (b *RemoteBucket[T]) emitAcknowledge(id model.EntityID, change Change) {
	b.mu.Lock()
	ack := b.events.Acknowledge
	b.mu.Unlock()
	if ack != nil {
		ack(id, change)
	}
}
