package reconcile

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/notewire/notewire/internal/core/action"
	"github.com/notewire/notewire/internal/core/bucket"
	"github.com/notewire/notewire/internal/core/model"
	"github.com/notewire/notewire/internal/core/observability/log"
)

// SessionConfig carries the inputs of the session lifecycle controller.
type SessionConfig struct {
	// Username skips the identity round trip when already known.
	Username string
	// CreateWelcomeNote seeds a first-run note after connecting.
	CreateWelcomeNote bool
	// MonitorInterval is the connection-health polling period.
	MonitorInterval time.Duration
}

// Session owns the backend connection's lifecycle: identity resolution,
// connection monitoring, optional first-run seeding, and teardown. After End
// the owning interceptor routes no further side effects.
type Session struct {
	client *bucket.Client
	emit   action.Dispatch
	logout func()
	logger log.Log

	monitorInterval time.Duration
	stopChan        chan struct{}
	ended           int32 // atomic bool
}

// StartSession registers the unauthorized handler, kicks off identity
// resolution and the connection monitor, and seeds the welcome note when
// configured. welcome is only called when CreateWelcomeNote is set.
func StartSession(
	ctx context.Context,
	config SessionConfig,
	client *bucket.Client,
	emit action.Dispatch,
	logout func(),
	welcome func() (model.Note, error),
	logger log.Log,
) *Session {
	if config.MonitorInterval <= 0 {
		config.MonitorInterval = 30 * time.Second
	}

	s := &Session{
		client:          client,
		emit:            emit,
		logout:          logout,
		logger:          logger.With(log.String("component", "session")),
		monitorInterval: config.MonitorInterval,
		stopChan:        make(chan struct{}),
	}

	client.OnUnauthorized(func() {
		s.logger.Warn("Backend rejected session, logging out")
		s.End()
	})

	go s.resolveAccountName(ctx, config.Username)
	go s.monitor()

	if config.CreateWelcomeNote {
		go s.seedWelcomeNote(welcome)
	}

	return s
}

// End closes the backend connection and invokes the logout callback.
// Idempotent; terminal for this session.
func (s *Session) End() {
	if !atomic.CompareAndSwapInt32(&s.ended, 0, 1) {
		return
	}

	close(s.stopChan)
	if err := s.client.Close(); err != nil {
		s.logger.Warn("Client close failed", log.Error(err))
	}
	s.logger.Info("Session ended")

	if s.logout != nil {
		s.logout()
	}
}

// Ended reports whether the session has been torn down.
func (s *Session) Ended() bool {
	return atomic.LoadInt32(&s.ended) == 1
}

func (s *Session) resolveAccountName(ctx context.Context, known string) {
	name := known
	if name == "" {
		resolved, err := s.client.AccountName(ctx)
		if err != nil {
			s.logger.Warn("Account identity not resolved", log.Error(err))
			return
		}
		name = resolved
	}

	s.logger.Info("Authenticated", log.String("account", name))
	s.emit(action.SetAccountName{AccountName: name})
}

// monitor reports connectivity transitions until the session ends.
func (s *Session) monitor() {
	ticker := time.NewTicker(s.monitorInterval)
	defer ticker.Stop()

	connected := true
	for {
		select {
		case <-ticker.C:
			now := !s.client.Closed()
			if now != connected {
				connected = now
				s.logger.Info("Connectivity changed", log.Bool("connected", connected))
				s.emit(action.ConnectivityChanged{Connected: connected})
			}
		case <-s.stopChan:
			return
		}
	}
}

// seedWelcomeNote dispatches the first-run note through the regular create
// pipeline so it is reconciled like any user-created note.
func (s *Session) seedWelcomeNote(welcome func() (model.Note, error)) {
	if welcome == nil {
		return
	}
	note, err := welcome()
	if err != nil {
		s.logger.Warn("Welcome note unavailable", log.Error(err))
		return
	}
	s.emit(action.CreateNoteWithID{NoteID: model.NewEntityID(), Note: note})
}
