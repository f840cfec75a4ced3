package bucket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/notewire/notewire/internal/core/model"
	"github.com/notewire/notewire/internal/core/observability/log"
	"github.com/notewire/notewire/internal/core/transport"
)

// envelope is the wire frame exchanged with the backend. One JSON object per
// transport frame.
type envelope struct {
	Type        string          `json:"type"`
	Bucket      Kind            `json:"bucket,omitempty"`
	EntityID    model.EntityID  `json:"id,omitempty"`
	Ccid        string          `json:"ccid,omitempty"`
	Op          string          `json:"op,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Checksum    uint64          `json:"checksum,omitempty"`
	Revisions   json.RawMessage `json:"revisions,omitempty"`
	RemoteInfo  map[string]any  `json:"remoteInfo,omitempty"`
	AccountName string          `json:"accountName,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Envelope types understood by the client.
const (
	envAuthorized   = "authorized"
	envUnauthorized = "unauthorized"
	envChange       = "change"
	envAck          = "ack"
	envGet          = "get"
	envEntity       = "entity"
	envTouch        = "touch"
	envRevisions    = "revisions"
	envUpdate       = "update"
)

// Client multiplexes bucket traffic over one backend connection. Responses
// are correlated by ccid; everything else is routed to the owning bucket.
type Client struct {
	conn   transport.Connection
	logger log.Log

	mu      sync.Mutex
	pending map[string]chan envelope
	inbound map[Kind]func(envelope)

	onUnauthorized atomic.Pointer[func()]
	accountName    chan string

	requestTimeout time.Duration
	closed         int32 // atomic bool
	stopChan       chan struct{}
	readerDone     sync.WaitGroup
}

// NewClient wraps an open connection and starts the read loop.
func NewClient(conn transport.Connection, logger log.Log) *Client {
	c := &Client{
		conn:           conn,
		logger:         logger.With(log.String("component", "bucket_client")),
		pending:        make(map[string]chan envelope),
		inbound:        make(map[Kind]func(envelope)),
		accountName:    make(chan string, 1),
		requestTimeout: 15 * time.Second,
		stopChan:       make(chan struct{}),
	}

	c.readerDone.Add(1)
	go c.readLoop()

	return c
}

// OnUnauthorized registers the callback invoked when the backend rejects the
// session. Invoked at most once.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized.Store(&fn)
}

// AccountName blocks until the backend announces the authenticated identity.
func (c *Client) AccountName(ctx context.Context) (string, error) {
	select {
	case name := <-c.accountName:
		return name, nil
	case <-c.stopChan:
		return "", ErrClientClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Closed reports whether the client has been shut down.
func (c *Client) Closed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// Close tears down the connection and fails all pending round trips.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}

	close(c.stopChan)
	err := c.conn.Close()
	c.readerDone.Wait()

	c.mu.Lock()
	for ccid, ch := range c.pending {
		close(ch)
		delete(c.pending, ccid)
	}
	c.mu.Unlock()

	c.logger.Info("Client closed")
	return err
}

// subscribe routes server-initiated envelopes for kind to fn.
func (c *Client) subscribe(kind Kind, fn func(envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbound[kind] = fn
}

// send writes one envelope without waiting for a response.
func (c *Client) send(ctx context.Context, env envelope) error {
	if c.Closed() {
		return ErrClientClosed
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return c.conn.Send(ctx, raw)
}

// roundTrip sends an envelope and waits for the response carrying its ccid.
func (c *Client) roundTrip(ctx context.Context, env envelope) (envelope, error) {
	if env.Ccid == "" {
		return envelope{}, errors.New("round trip requires a ccid")
	}

	ch := make(chan envelope, 1)
	c.mu.Lock()
	c.pending[env.Ccid] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, env.Ccid)
		c.mu.Unlock()
	}()

	if err := c.send(ctx, env); err != nil {
		return envelope{}, err
	}

	timeout := time.NewTimer(c.requestTimeout)
	defer timeout.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return envelope{}, ErrClientClosed
		}
		if resp.Error == envUnauthorized {
			return envelope{}, ErrUnauthorized
		}
		if resp.Error != "" {
			return envelope{}, fmt.Errorf("backend rejected %s: %s", env.Type, resp.Error)
		}
		return resp, nil
	case <-timeout.C:
		return envelope{}, fmt.Errorf("%s request timed out", env.Type)
	case <-c.stopChan:
		return envelope{}, ErrClientClosed
	case <-ctx.Done():
		return envelope{}, ctx.Err()
	}
}

func (c *Client) readLoop() {
	defer c.readerDone.Done()

	ctx := context.Background()
	for !c.Closed() {
		raw, err := c.conn.Receive(ctx)
		if err != nil {
			if !c.Closed() {
				c.logger.Warn("Receive failed, stopping read loop", log.Error(err))
			}
			return
		}

		var env envelope
		if err = json.Unmarshal(raw, &env); err != nil {
			c.logger.Warn("Dropping malformed envelope", log.Error(err))
			continue
		}

		c.dispatch(env)
	}
}

func (c *Client) dispatch(env envelope) {
	if env.Ccid != "" {
		c.mu.Lock()
		ch, ok := c.pending[env.Ccid]
		c.mu.Unlock()
		if ok {
			ch <- env
			return
		}
	}

	switch env.Type {
	case envAuthorized:
		select {
		case c.accountName <- env.AccountName:
		default:
		}

	case envUnauthorized:
		c.logger.Warn("Session unauthorized")
		if fn := c.onUnauthorized.Load(); fn != nil {
			(*fn)()
		}

	default:
		c.mu.Lock()
		handler, ok := c.inbound[env.Bucket]
		c.mu.Unlock()
		if ok {
			handler(env)
			return
		}
		c.logger.Debug("Unroutable envelope",
			log.String("type", env.Type),
			log.String("bucket", string(env.Bucket)))
	}
}
