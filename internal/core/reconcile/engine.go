// Package reconcile decides, for every state-changing action, whether and
// when to propagate a mutation to the synchronization backend, coalesces
// rapid edits, and keeps locally assigned provisional ids consistent with
// backend-confirmed ones.
package reconcile

import (
	"sync"
	"time"

	"github.com/notewire/notewire/internal/core/action"
	"github.com/notewire/notewire/internal/core/bucket"
	"github.com/notewire/notewire/internal/core/model"
	"github.com/notewire/notewire/internal/core/observability/log"
	"github.com/notewire/notewire/internal/core/store"
)

// Config holds the engine's timing windows.
type Config struct {
	// NoteDebounceWindow coalesces keystroke-level edits.
	NoteDebounceWindow time.Duration
	// TagDebounceWindow coalesces rapid tag renames and reorders.
	TagDebounceWindow time.Duration
	// TouchDelay defers immediate-sync and remove requests slightly so the
	// store mutation settles first.
	TouchDelay time.Duration
	// RevisionFetchDelay guards revision fetches against rapid navigation.
	RevisionFetchDelay time.Duration
}

// DefaultConfig returns the stock timing windows.
func DefaultConfig() Config {
	return Config{
		NoteDebounceWindow: 2 * time.Second,
		TagDebounceWindow:  20 * time.Millisecond,
		TouchDelay:         10 * time.Millisecond,
		RevisionFetchDelay: 250 * time.Millisecond,
	}
}

// Engine is the assembled dispatch pipeline: reducer wrapped by the
// interceptor, with all actions serialized in dispatch order.
type Engine struct {
	mu          sync.Mutex
	store       *store.EntityStore
	interceptor *Interceptor
	pipeline    action.Dispatch
	noteQueue   *Debouncer
	tagQueue    *Debouncer
	logger      log.Log
}

// NewEngine wires the reconciliation components over the given buckets.
// Attach a session with AttachSession before dispatching Logout.
func NewEngine(
	entities *store.EntityStore,
	notes bucket.Bucket[model.Note],
	tags bucket.Bucket[model.Tag],
	preferences bucket.Bucket[model.Preferences],
	config Config,
	logger log.Log,
) *Engine {
	e := &Engine{
		store:  entities,
		logger: logger.With(log.String("component", "engine")),
	}

	e.noteQueue = NewDebouncer(config.NoteDebounceWindow, notes.Touch,
		logger.With(log.String("component", "note_debouncer")))
	e.tagQueue = NewDebouncer(config.TagDebounceWindow, tags.Touch,
		logger.With(log.String("component", "tag_debouncer")))

	revisions := NewRevisionLoader(notes, entities.OpenedNote, e.Dispatch,
		config.RevisionFetchDelay, logger)
	prefs := NewPreferenceSync(preferences, logger)

	e.interceptor = NewInterceptor(entities, notes, tags, prefs,
		e.noteQueue, e.tagQueue, revisions, nil, e.Dispatch,
		config.TouchDelay, logger)
	e.pipeline = e.interceptor.Wrap(func(a action.Action) { entities.Reduce(a) })

	bindBucketEvents(e.Dispatch, notes, tags, preferences)

	return e
}

// AttachSession hands the interceptor the session to tear down on logout.
func (e *Engine) AttachSession(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.interceptor.session = s
}

// Dispatch feeds one action through the pipeline. Actions are processed
// strictly in dispatch order; side effects may complete out of order.
func (e *Engine) Dispatch(a action.Action) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pipeline(a)
}

// Store exposes the entity store for read access.
func (e *Engine) Store() *store.EntityStore {
	return e.store
}

// Stop cancels all pending sync timers without ending the session. Used on
// process shutdown.
func (e *Engine) Stop() {
	e.noteQueue.Stop()
	e.tagQueue.Stop()
	e.logger.Info("Engine stopped")
}

// bindBucketEvents forwards remote bucket notifications into the pipeline.
func bindBucketEvents(
	emit action.Dispatch,
	notes bucket.Bucket[model.Note],
	tags bucket.Bucket[model.Tag],
	preferences bucket.Bucket[model.Preferences],
) {
	if w, ok := notes.(bucket.Watcher[model.Note]); ok {
		w.Watch(bucket.Events[model.Note]{
			Update: func(id model.EntityID, data model.Note, remoteInfo map[string]any) {
				emit(action.RemoteNoteUpdate{NoteID: id, Note: data, RemoteInfo: remoteInfo})
			},
			Acknowledge: func(id model.EntityID, change bucket.Change) {
				emit(action.AcknowledgePendingChange{EntityID: id, Ccid: change.Ccid})
			},
			Send: func(change bucket.Change) {
				emit(action.SubmitPendingChange{EntityID: change.EntityID, Ccid: change.Ccid})
			},
		})
	}

	if w, ok := tags.(bucket.Watcher[model.Tag]); ok {
		w.Watch(bucket.Events[model.Tag]{
			Update: func(id model.EntityID, data model.Tag, remoteInfo map[string]any) {
				emit(action.RemoteTagUpdate{TagID: id, Tag: data, RemoteInfo: remoteInfo})
			},
		})
	}

	if w, ok := preferences.(bucket.Watcher[model.Preferences]); ok {
		w.Watch(bucket.Events[model.Preferences]{
			Update: func(id model.EntityID, data model.Preferences, _ map[string]any) {
				if id != model.PreferencesKey {
					return
				}
				emit(action.SetAnalytics{AllowAnalytics: data.AnalyticsEnabled()})
			},
		})
	}
}
