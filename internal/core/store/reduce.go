package store

import (
	"time"

	"github.com/notewire/notewire/internal/core/action"
	"github.com/notewire/notewire/internal/core/model"
)

// Reduce applies an action's state mutation. The sync engine observes the
// store before and after this runs; it never calls Reduce itself.
func (s *EntityStore) Reduce(a action.Action) {
	switch act := a.(type) {
	case action.CreateNoteWithID:
		s.SetNote(act.NoteID, model.NewNote().Merge(act.Note))

	case action.ImportNoteWithID:
		s.SetNote(act.NoteID, model.NewNote().Merge(act.Note))

	case action.EditNote:
		s.updateNote(act.NoteID, func(n *model.Note) {
			n.Content = act.Content
			n.ModificationDate = model.Unix(time.Now())
		})

	case action.InsertTaskIntoNote:
		s.updateNote(act.NoteID, func(n *model.Note) {
			n.Content += "\n- [ ] "
			n.ModificationDate = model.Unix(time.Now())
		})

	case action.AddNoteTag:
		s.addNoteTag(act.NoteID, act.TagName)

	case action.RemoveNoteTag:
		s.updateNote(act.NoteID, func(n *model.Note) {
			n.Tags = removeTag(n.Tags, act.TagName)
		})

	case action.OpenNote:
		s.SetOpenedNote(act.NoteID)

	case action.SelectNote:
		s.SetOpenedNote(act.NoteID)

	case action.FilterNotes:
		if act.NextNoteToOpen != "" {
			s.SetOpenedNote(act.NextNoteToOpen)
		}

	case action.MarkdownNote:
		s.setSystemTag(act.NoteID, "markdown", act.Markdown)

	case action.PinNote:
		s.setSystemTag(act.NoteID, "pinned", act.Pin)

	case action.PublishNote:
		s.setSystemTag(act.NoteID, "published", act.Publish)

	case action.TrashNote:
		s.updateNote(act.NoteID, func(n *model.Note) { n.Deleted = true })

	case action.RestoreNote:
		s.updateNote(act.NoteID, func(n *model.Note) { n.Deleted = false })

	case action.RestoreNoteRevision:
		s.updateNote(act.NoteID, func(n *model.Note) {
			n.ModificationDate = model.Unix(time.Now())
		})

	case action.DeleteNoteForever:
		s.RemoveNote(act.NoteID)

	case action.RenameTag:
		s.renameTag(act.OldTagName, act.NewTagName)

	case action.ReorderTag:
		s.reorderTag(act.TagName, act.NewIndex)

	case action.TrashTag:
		s.trashTag(act.TagName)

	case action.SetAnalytics:
		s.SetPreferences(s.Preferences().WithAnalytics(act.AllowAnalytics))

	case action.ToggleAnalytics:
		p := s.Preferences()
		s.SetPreferences(p.WithAnalytics(!p.AnalyticsEnabled()))

	case action.ConfirmNewNote:
		s.RekeyNote(act.OriginalNoteID, act.NewNoteID, act.Note)

	case action.ConfirmNewTag:
		s.RekeyTag(act.OriginalTagID, act.NewTagID, act.Tag)

	case action.RemoteNoteUpdate:
		s.SetNote(act.NoteID, act.Note)

	case action.RemoteTagUpdate:
		s.UpsertTag(act.TagID, act.Tag)

	case action.SetAccountName:
		s.SetAccountName(act.AccountName)
	}
}

func (s *EntityStore) updateNote(id model.EntityID, fn func(*model.Note)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return
	}
	fn(&n)
	s.notes[id] = n
}

func (s *EntityStore) setSystemTag(id model.EntityID, tag string, on bool) {
	s.updateNote(id, func(n *model.Note) {
		out := n.SystemTags[:0:0]
		for _, st := range n.SystemTags {
			if st != tag {
				out = append(out, st)
			}
		}
		if on {
			out = append(out, tag)
		}
		n.SystemTags = out
		n.ModificationDate = model.Unix(time.Now())
	})
}

// addNoteTag tags the note and, for a name the store has never seen, records
// the tag under a provisional id so the engine can reconcile it on confirm.
func (s *EntityStore) addNoteTag(noteID model.EntityID, name model.TagName) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tagIDByName[name.Lower()]; !ok {
		s.upsertTagLocked(model.NewEntityID(), model.Tag{Name: name, Index: len(s.tagOrder)})
	}

	n, ok := s.notes[noteID]
	if !ok {
		return
	}
	for _, t := range n.Tags {
		if t.Lower() == name.Lower() {
			return
		}
	}
	n.Tags = append(append([]model.TagName(nil), n.Tags...), name)
	s.notes[noteID] = n
}

func (s *EntityStore) renameTag(oldName, newName model.TagName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tagIDByName[oldName.Lower()]
	if !ok {
		return
	}
	t := s.tags[id]
	t.Name = newName
	s.upsertTagLocked(id, t)

	for nid, n := range s.notes {
		changed := false
		// snapshots share the backing array, so rewrite a copy
		tags := append([]model.TagName(nil), n.Tags...)
		for i, tn := range tags {
			if tn.Lower() == oldName.Lower() {
				tags[i] = newName
				changed = true
			}
		}
		if changed {
			n.Tags = tags
			s.notes[nid] = n
		}
	}
}

func (s *EntityStore) reorderTag(name model.TagName, newIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tagIDByName[name.Lower()]
	if !ok {
		return
	}
	for i, tid := range s.tagOrder {
		if tid == id {
			s.tagOrder = append(s.tagOrder[:i], s.tagOrder[i+1:]...)
			break
		}
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > len(s.tagOrder) {
		newIndex = len(s.tagOrder)
	}
	s.tagOrder = append(s.tagOrder[:newIndex], append([]model.EntityID{id}, s.tagOrder[newIndex:]...)...)
	for i, tid := range s.tagOrder {
		t := s.tags[tid]
		t.Index = i
		s.tags[tid] = t
	}
}

func (s *EntityStore) trashTag(name model.TagName) {
	id, ok := s.TagIDByName(name)
	if !ok {
		return
	}
	s.RemoveTag(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	for nid, n := range s.notes {
		trimmed := removeTag(n.Tags, name)
		if len(trimmed) != len(n.Tags) {
			n.Tags = trimmed
			s.notes[nid] = n
		}
	}
}

func removeTag(tags []model.TagName, name model.TagName) []model.TagName {
	out := tags[:0:0]
	for _, t := range tags {
		if t.Lower() != name.Lower() {
			out = append(out, t)
		}
	}
	return out
}
