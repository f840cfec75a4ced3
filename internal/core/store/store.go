// Package store holds the canonical local representation of notes, tags and
// preferences. The sync engine reads snapshots of it around every action; the
// reducer is the only writer, except for the confirmed-id rewrite applied by
// the reconciler.
package store

import (
	"sort"
	"sync"

	"github.com/notewire/notewire/internal/core/model"
)

// EntityStore is an in-memory entity collection. Safe for concurrent use.
type EntityStore struct {
	mu          sync.RWMutex
	notes       map[model.EntityID]model.Note
	tags        map[model.EntityID]model.Tag
	tagIDByName map[string]model.EntityID
	tagOrder    []model.EntityID
	preferences model.Preferences
	openedNote  model.EntityID
	accountName string
}

// New creates an empty store with a pre-existing empty preferences record.
func New() *EntityStore {
	return &EntityStore{
		notes:       make(map[model.EntityID]model.Note),
		tags:        make(map[model.EntityID]model.Tag),
		tagIDByName: make(map[string]model.EntityID),
		preferences: model.Preferences{},
	}
}

// Snapshot is an immutable view of the store taken at a point in time.
type Snapshot struct {
	notes       map[model.EntityID]model.Note
	tags        map[model.EntityID]model.Tag
	tagIDByName map[string]model.EntityID
	tagOrder    []model.EntityID
	openedNote  model.EntityID
}

// Snapshot copies the lookup structures the interceptor routes on.
func (s *EntityStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := make(map[model.EntityID]model.Note, len(s.notes))
	for id, n := range s.notes {
		notes[id] = n
	}
	tags := make(map[model.EntityID]model.Tag, len(s.tags))
	for id, t := range s.tags {
		tags[id] = t
	}
	byName := make(map[string]model.EntityID, len(s.tagIDByName))
	for name, id := range s.tagIDByName {
		byName[name] = id
	}
	order := append([]model.EntityID(nil), s.tagOrder...)

	return Snapshot{
		notes:       notes,
		tags:        tags,
		tagIDByName: byName,
		tagOrder:    order,
		openedNote:  s.openedNote,
	}
}

// Note returns a note from the snapshot.
func (v Snapshot) Note(id model.EntityID) (model.Note, bool) {
	n, ok := v.notes[id]
	return n, ok
}

// TagIDByName resolves a tag id by case-insensitive name.
func (v Snapshot) TagIDByName(name model.TagName) (model.EntityID, bool) {
	id, ok := v.tagIDByName[name.Lower()]
	return id, ok
}

// TagIDs returns all tag ids in display order.
func (v Snapshot) TagIDs() []model.EntityID {
	return append([]model.EntityID(nil), v.tagOrder...)
}

// OpenedNote returns the id of the note open in the editor, if any.
func (v Snapshot) OpenedNote() model.EntityID {
	return v.openedNote
}

// Note returns the live note under id.
func (s *EntityStore) Note(id model.EntityID) (model.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	return n, ok
}

// SetNote inserts or replaces a note.
func (s *EntityStore) SetNote(id model.EntityID, n model.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[id] = n
}

// RemoveNote deletes a note outright.
func (s *EntityStore) RemoveNote(id model.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, id)
	if s.openedNote == id {
		s.openedNote = ""
	}
}

// Tag returns the live tag under id.
func (s *EntityStore) Tag(id model.EntityID) (model.Tag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tags[id]
	return t, ok
}

// TagIDByName resolves a tag id by case-insensitive name.
func (s *EntityStore) TagIDByName(name model.TagName) (model.EntityID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tagIDByName[name.Lower()]
	return id, ok
}

// UpsertTag inserts or replaces a tag, keeping the name index and display
// order consistent. A renamed tag keeps its position.
func (s *EntityStore) UpsertTag(id model.EntityID, t model.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertTagLocked(id, t)
}

func (s *EntityStore) upsertTagLocked(id model.EntityID, t model.Tag) {
	if prev, ok := s.tags[id]; ok {
		if prev.Name.Lower() != t.Name.Lower() {
			delete(s.tagIDByName, prev.Name.Lower())
		}
	} else {
		s.tagOrder = append(s.tagOrder, id)
	}
	s.tags[id] = t
	s.tagIDByName[t.Name.Lower()] = id
	s.sortTagsLocked()
}

// RemoveTag deletes a tag and its index entries.
func (s *EntityStore) RemoveTag(id model.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags[id]
	if !ok {
		return
	}
	delete(s.tags, id)
	delete(s.tagIDByName, t.Name.Lower())
	for i, tid := range s.tagOrder {
		if tid == id {
			s.tagOrder = append(s.tagOrder[:i], s.tagOrder[i+1:]...)
			break
		}
	}
}

// TagIDs returns all tag ids in display order.
func (s *EntityStore) TagIDs() []model.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.EntityID(nil), s.tagOrder...)
}

func (s *EntityStore) sortTagsLocked() {
	sort.SliceStable(s.tagOrder, func(i, j int) bool {
		return s.tags[s.tagOrder[i]].Index < s.tags[s.tagOrder[j]].Index
	})
}

// SetOpenedNote records the note currently open in the editor.
func (s *EntityStore) SetOpenedNote(id model.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openedNote = id
}

// OpenedNote returns the note currently open in the editor.
func (s *EntityStore) OpenedNote() model.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openedNote
}

// Preferences returns a copy of the preferences record.
func (s *EntityStore) Preferences() model.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(model.Preferences, len(s.preferences))
	for k, v := range s.preferences {
		out[k] = v
	}
	return out
}

// SetPreferences replaces the preferences record.
func (s *EntityStore) SetPreferences(p model.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences = p
}

// SetAccountName records the authenticated account identity.
func (s *EntityStore) SetAccountName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountName = name
}

// AccountName returns the authenticated account identity, empty until the
// session resolves it.
func (s *EntityStore) AccountName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountName
}

// RekeyNote rewrites a note's key from a provisional id to the confirmed id
// and stores the confirmed data. The old key is removed in the same step.
func (s *EntityStore) RekeyNote(oldID, newID model.EntityID, data model.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, oldID)
	s.notes[newID] = data
	if s.openedNote == oldID {
		s.openedNote = newID
	}
}

// RekeyTag rewrites a tag's key from a provisional id to the confirmed id.
func (s *EntityStore) RekeyTag(oldID, newID model.EntityID, data model.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.tags[oldID]; ok {
		delete(s.tags, oldID)
		delete(s.tagIDByName, old.Name.Lower())
		for i, tid := range s.tagOrder {
			if tid == oldID {
				s.tagOrder[i] = newID
				break
			}
		}
		s.tags[newID] = data
		s.tagIDByName[data.Name.Lower()] = newID
		return
	}
	s.upsertTagLocked(newID, data)
}
