package reconcile

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/notewire/notewire/internal/core/action"
	"github.com/notewire/notewire/internal/core/bucket"
	"github.com/notewire/notewire/internal/core/model"
	"github.com/notewire/notewire/internal/core/observability/log"
)

// RevisionLoader fetches a note's history after a short delay, abandoning the
// fetch if the user has navigated away in the meantime. Concurrent fetches
// for the same note collapse into one backend call.
type RevisionLoader struct {
	notes  bucket.Bucket[model.Note]
	opened func() model.EntityID
	emit   action.Dispatch
	delay  time.Duration
	group  singleflight.Group
	logger log.Log
}

// NewRevisionLoader builds a loader. opened must return the id of the note
// currently open in the editor.
func NewRevisionLoader(
	notes bucket.Bucket[model.Note],
	opened func() model.EntityID,
	emit action.Dispatch,
	delay time.Duration,
	logger log.Log,
) *RevisionLoader {
	return &RevisionLoader{
		notes:  notes,
		opened: opened,
		emit:   emit,
		delay:  delay,
		logger: logger.With(log.String("component", "revision_loader")),
	}
}

// Load schedules a revision fetch for noteID. If a different note is open
// once the delay elapses, nothing is fetched and nothing is emitted.
func (l *RevisionLoader) Load(noteID model.EntityID) {
	time.AfterFunc(l.delay, func() {
		if l.opened() != noteID {
			return
		}
		l.fetch(noteID)
	})
}

func (l *RevisionLoader) fetch(noteID model.EntityID) {
	v, err, _ := l.group.Do(string(noteID), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return l.notes.Revisions(ctx, noteID)
	})
	if err != nil {
		l.logger.Warn("Revision fetch failed",
			log.String("note_id", string(noteID)),
			log.Error(err))
		return
	}

	fetched := v.([]bucket.Revision[model.Note])
	revisions := make([]model.Revision, len(fetched))
	for i, r := range fetched {
		revisions[i] = model.Revision{Version: r.Version, Data: r.Data}
	}
	sort.Slice(revisions, func(i, j int) bool {
		return revisions[i].Version < revisions[j].Version
	})

	l.emit(action.LoadRevisions{NoteID: noteID, Revisions: revisions})
}
