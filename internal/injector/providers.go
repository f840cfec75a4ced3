// Package injector assembles the daemon's object graph with Wire.
package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/notewire/notewire/internal/config"
	"github.com/notewire/notewire/internal/core/bucket"
	"github.com/notewire/notewire/internal/core/model"
	"github.com/notewire/notewire/internal/core/observability/log"
	"github.com/notewire/notewire/internal/core/reconcile"
	"github.com/notewire/notewire/internal/core/store"
	"github.com/notewire/notewire/internal/core/transport"
	"github.com/notewire/notewire/internal/welcome"
)

// App is the fully wired daemon: one backend connection, one entity store,
// one reconciliation engine.
type App struct {
	Config config.Config
	Logger log.Log
	Client *bucket.Client
	Engine *reconcile.Engine
}

var appSet = wire.NewSet(
	provideLogger,
	provideStore,
	provideConnection,
	provideClient,
	provideNoteBucket,
	provideTagBucket,
	providePreferencesBucket,
	provideEngine,
	provideApp,
)

func provideLogger(cfg config.Config) log.Log {
	return log.New(cfg.Level())
}

func provideStore() *store.EntityStore {
	return store.New()
}

func provideConnection(ctx context.Context, cfg config.Config, logger log.Log) (transport.Connection, error) {
	tc := transport.DefaultConfig()
	tc.InsecureTLS = cfg.Backend.InsecureTLS
	return transport.Dial(ctx, cfg.Backend.URL, cfg.Backend.Token, tc, logger)
}

func provideClient(conn transport.Connection, logger log.Log) *bucket.Client {
	return bucket.NewClient(conn, logger)
}

func provideNoteBucket(client *bucket.Client, logger log.Log) bucket.Bucket[model.Note] {
	return bucket.NewRemoteBucket[model.Note](client, bucket.KindNote, bucket.NoteSchema(), logger)
}

func provideTagBucket(client *bucket.Client, logger log.Log) bucket.Bucket[model.Tag] {
	return bucket.NewRemoteBucket[model.Tag](client, bucket.KindTag, bucket.TagSchema(), logger)
}

func providePreferencesBucket(client *bucket.Client, logger log.Log) bucket.Bucket[model.Preferences] {
	return bucket.NewRemoteBucket[model.Preferences](client, bucket.KindPreferences, nil, logger)
}

func provideEngine(
	entities *store.EntityStore,
	notes bucket.Bucket[model.Note],
	tags bucket.Bucket[model.Tag],
	preferences bucket.Bucket[model.Preferences],
	cfg config.Config,
	logger log.Log,
) *reconcile.Engine {
	return reconcile.NewEngine(entities, notes, tags, preferences, cfg.EngineConfig(), logger)
}

func provideApp(cfg config.Config, logger log.Log, client *bucket.Client, engine *reconcile.Engine) *App {
	return &App{Config: cfg, Logger: logger, Client: client, Engine: engine}
}

// StartSession boots the session lifecycle over the wired client and attaches
// it to the engine so Logout tears it down.
func (a *App) StartSession(ctx context.Context, logout func()) *reconcile.Session {
	s := reconcile.StartSession(ctx, reconcile.SessionConfig{
		Username:          a.Config.Backend.Username,
		CreateWelcomeNote: a.Config.Session.CreateWelcomeNote,
		MonitorInterval:   a.Config.Session.MonitorInterval,
	}, a.Client, a.Engine.Dispatch, logout, welcome.Note, a.Logger)

	a.Engine.AttachSession(s)
	return s
}

// Shutdown stops pending sync timers and closes the backend connection. Does
// not log the account out.
func (a *App) Shutdown() {
	a.Engine.Stop()
	if err := a.Client.Close(); err != nil {
		a.Logger.Warn("Client close failed", log.Error(err))
	}
}
