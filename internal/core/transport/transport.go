// Package transport provides the framed, bidirectional connection the sync
// engine holds to the backend. Two transports are supported: websocket and
// QUIC. Callers pick by URL scheme.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/notewire/notewire/internal/core/observability/log"
)

var (
	ErrConnectionClosed  = errors.New("connection is closed")
	ErrMessageTooLarge   = errors.New("message exceeds size limit")
	ErrUnsupportedScheme = errors.New("unsupported transport scheme")
)

// Connection is a single framed connection to the backend.
type Connection interface {
	// Send writes one frame. Blocks until written or ctx expires.
	Send(ctx context.Context, payload []byte) error
	// Receive reads one frame. Blocks until a frame arrives, the connection
	// closes, or ctx expires.
	Receive(ctx context.Context) ([]byte, error)

	RemoteAddr() string
	Close() error
}

// Config holds connection tuning shared by both transports.
type Config struct {
	MaxMessageSize int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	KeepAlive      time.Duration
	InsecureTLS    bool
}

// DefaultConfig returns the default connection configuration.
func DefaultConfig() Config {
	return Config{
		MaxMessageSize: 1024 * 1024, // 1MB
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   10 * time.Second,
		KeepAlive:      30 * time.Second,
	}
}

// Dial opens a connection to addr, choosing the transport by scheme:
// ws/wss dial a websocket, quic dials a QUIC stream.
func Dial(ctx context.Context, addr, token string, config Config, logger log.Log) (Connection, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse backend addr: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		return dialWebSocket(ctx, addr, token, config, logger)
	case "quic":
		return dialQUIC(ctx, u.Host, token, config, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}
