package reconcile

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/notewire/notewire/internal/core/action"
	"github.com/notewire/notewire/internal/core/bucket"
	"github.com/notewire/notewire/internal/core/model"
	"github.com/notewire/notewire/internal/core/observability/log"
	"github.com/notewire/notewire/internal/core/store"
)

// Interceptor observes every dispatched action around its store mutation and
// routes it to the sync side effects. It never blocks or mutates the action
// itself; all backend work happens on timers or goroutines.
type Interceptor struct {
	store     *store.EntityStore
	notes     bucket.Bucket[model.Note]
	tags      bucket.Bucket[model.Tag]
	prefs     *PreferenceSync
	noteQueue *Debouncer
	tagQueue  *Debouncer
	revisions *RevisionLoader
	session   *Session

	emit           action.Dispatch
	touchDelay     time.Duration
	requestTimeout time.Duration
	logger         log.Log

	done int32 // atomic bool, set on logout
}

// NewInterceptor wires the routing layer. emit must feed actions back into
// the front of the dispatch pipeline.
func NewInterceptor(
	entities *store.EntityStore,
	notes bucket.Bucket[model.Note],
	tags bucket.Bucket[model.Tag],
	prefs *PreferenceSync,
	noteQueue, tagQueue *Debouncer,
	revisions *RevisionLoader,
	session *Session,
	emit action.Dispatch,
	touchDelay time.Duration,
	logger log.Log,
) *Interceptor {
	return &Interceptor{
		store:          entities,
		notes:          notes,
		tags:           tags,
		prefs:          prefs,
		noteQueue:      noteQueue,
		tagQueue:       tagQueue,
		revisions:      revisions,
		session:        session,
		emit:           emit,
		touchDelay:     touchDelay,
		requestTimeout: 30 * time.Second,
		logger:         logger.With(log.String("component", "interceptor")),
	}
}

// Wrap composes the interceptor around the reducer step: snapshot, mutate,
// snapshot, route.
func (i *Interceptor) Wrap(next action.Dispatch) action.Dispatch {
	return func(a action.Action) {
		if atomic.LoadInt32(&i.done) == 1 {
			next(a)
			return
		}
		prev := i.store.Snapshot()
		next(a)
		i.route(a, prev, i.store.Snapshot())
	}
}

// route triggers side effects for one applied action. Unmatched variants are
// an intentional pass-through.
func (i *Interceptor) route(a action.Action, prev, next store.Snapshot) {
	switch act := a.(type) {
	case action.AddNoteTag:
		if _, existed := prev.TagIDByName(act.TagName); existed {
			if id, ok := next.TagIDByName(act.TagName); ok {
				i.tagQueue.Schedule(id)
			}
		} else if provisionalID, ok := next.TagIDByName(act.TagName); ok {
			go i.createTag(act.TagName, provisionalID)
		}
		i.noteQueue.Schedule(act.NoteID)

	case action.RemoveNoteTag:
		i.noteQueue.Schedule(act.NoteID)

	case action.CreateNoteWithID:
		go i.createNote(act.NoteID, act.Note)

	case action.EditNote:
		i.noteQueue.Schedule(act.NoteID)

	case action.InsertTaskIntoNote:
		i.noteQueue.Schedule(act.NoteID)

	case action.OpenNote:
		i.loadRevisions(act.NoteID, next)

	case action.SelectNote:
		i.loadRevisions(act.NoteID, next)

	case action.FilterNotes:
		i.loadRevisions(act.NextNoteToOpen, next)

	case action.ImportNoteWithID:
		i.touchSoon(act.NoteID)

	case action.MarkdownNote:
		i.touchSoon(act.NoteID)

	case action.PinNote:
		i.touchSoon(act.NoteID)

	case action.PublishNote:
		i.touchSoon(act.NoteID)

	case action.RestoreNote:
		i.touchSoon(act.NoteID)

	case action.RestoreNoteRevision:
		i.touchSoon(act.NoteID)

	case action.TrashNote:
		i.touchSoon(act.NoteID)

	case action.DeleteNoteForever:
		id := act.NoteID
		time.AfterFunc(i.touchDelay, func() { i.notes.Remove(id) })

	case action.RenameTag:
		if id, ok := prev.TagIDByName(act.OldTagName); ok {
			i.tagQueue.Schedule(id)
		}

	case action.ReorderTag:
		// one tag moving means every tag's relative position changed
		for _, id := range next.TagIDs() {
			i.tagQueue.Schedule(id)
		}

	case action.SetAnalytics:
		i.prefs.SetAnalytics(act.AllowAnalytics)

	case action.ToggleAnalytics:
		i.prefs.ToggleAnalytics()

	case action.TrashTag:
		if id, ok := prev.TagIDByName(act.TagName); ok {
			// immediate, but off the dispatch path
			go i.tags.Remove(id)
		}

	case action.ConfirmNewNote:
		i.noteQueue.Rekey(act.OriginalNoteID, act.NewNoteID)

	case action.ConfirmNewTag:
		i.tagQueue.Rekey(act.OriginalTagID, act.NewTagID)

	case action.Logout:
		atomic.StoreInt32(&i.done, 1)
		i.noteQueue.Stop()
		i.tagQueue.Stop()
		if i.session != nil {
			i.session.End()
		}
	}
}

// loadRevisions resolves the note whose history should be shown, falling back
// to the note open after the action applied.
func (i *Interceptor) loadRevisions(noteID model.EntityID, next store.Snapshot) {
	if noteID == "" {
		noteID = next.OpenedNote()
	}
	if noteID == "" {
		return
	}
	i.revisions.Load(noteID)
}

func (i *Interceptor) touchSoon(id model.EntityID) {
	time.AfterFunc(i.touchDelay, func() { i.notes.Touch(id) })
}

// createNote runs the optimistic create round trip: defaults merged with the
// supplied fields, then a reconciliation event carrying both ids. A failed
// create leaves the note permanently provisional; no retry here.
func (i *Interceptor) createNote(provisionalID model.EntityID, fields model.Note) {
	ctx, cancel := context.WithTimeout(context.Background(), i.requestTimeout)
	defer cancel()

	confirmed, err := i.notes.Add(ctx, model.NewNote().Merge(fields))
	if err != nil {
		i.logger.Error("Note create failed",
			log.String("provisional_id", string(provisionalID)),
			log.Error(err))
		return
	}

	i.emit(action.ConfirmNewNote{
		OriginalNoteID: provisionalID,
		NewNoteID:      confirmed.ID,
		Note:           confirmed.Data,
	})
}

func (i *Interceptor) createTag(name model.TagName, provisionalID model.EntityID) {
	ctx, cancel := context.WithTimeout(context.Background(), i.requestTimeout)
	defer cancel()

	confirmed, err := i.tags.Add(ctx, model.Tag{Name: name})
	if err != nil {
		i.logger.Error("Tag create failed",
			log.String("tag_name", string(name)),
			log.Error(err))
		return
	}

	i.emit(action.ConfirmNewTag{
		TagName:       name,
		OriginalTagID: provisionalID,
		NewTagID:      confirmed.ID,
		Tag:           confirmed.Data,
	})
}
