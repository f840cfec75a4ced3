// Package action defines the closed set of state-changing actions flowing
// through the dispatch pipeline, plus the notifications the sync engine emits
// back into it. The interceptor type-switches over Action; a new variant is a
// compile-visible obligation to route or explicitly ignore it.
package action

import "github.com/notewire/notewire/internal/core/model"

// Action is implemented only by types in this package.
type Action interface {
	isAction()
}

// Dispatch feeds an action into the pipeline.
type Dispatch func(Action)

// User-initiated actions

// AddNoteTag attaches a tag to a note by name.
type AddNoteTag struct {
	NoteID  model.EntityID
	TagName model.TagName
}

// RemoveNoteTag detaches a tag from a note.
type RemoveNoteTag struct {
	NoteID  model.EntityID
	TagName model.TagName
}

// CreateNoteWithID creates a note under a locally generated provisional id.
type CreateNoteWithID struct {
	NoteID model.EntityID
	Note   model.Note
}

// EditNote is a keystroke-level content or structure edit.
type EditNote struct {
	NoteID  model.EntityID
	Content string
}

// InsertTaskIntoNote inserts a task item into a note.
type InsertTaskIntoNote struct {
	NoteID model.EntityID
}

// OpenNote opens a note in the editor.
type OpenNote struct {
	NoteID model.EntityID
}

// SelectNote changes the list selection.
type SelectNote struct {
	NoteID model.EntityID
}

// FilterNotes changes the note list filter. NextNoteToOpen names the note the
// filter change will land on, when known.
type FilterNotes struct {
	NextNoteToOpen model.EntityID
}

// ImportNoteWithID imports an externally sourced note under a known id.
type ImportNoteWithID struct {
	NoteID model.EntityID
	Note   model.Note
}

// MarkdownNote toggles markdown rendering for a note.
type MarkdownNote struct {
	NoteID   model.EntityID
	Markdown bool
}

// PinNote toggles the pinned state of a note.
type PinNote struct {
	NoteID model.EntityID
	Pin    bool
}

// PublishNote toggles publishing of a note.
type PublishNote struct {
	NoteID  model.EntityID
	Publish bool
}

// RestoreNote pulls a note out of the trash.
type RestoreNote struct {
	NoteID model.EntityID
}

// RestoreNoteRevision replaces a note's content with a historical revision.
type RestoreNoteRevision struct {
	NoteID  model.EntityID
	Version int
}

// TrashNote soft-deletes a note.
type TrashNote struct {
	NoteID model.EntityID
}

// DeleteNoteForever permanently removes a trashed note.
type DeleteNoteForever struct {
	NoteID model.EntityID
}

// RenameTag renames a tag across the store.
type RenameTag struct {
	OldTagName model.TagName
	NewTagName model.TagName
}

// ReorderTag moves a tag to a new display position.
type ReorderTag struct {
	TagName  model.TagName
	NewIndex int
}

// SetAnalytics sets the shared analytics preference. Also emitted when the
// preferences record changes remotely.
type SetAnalytics struct {
	AllowAnalytics bool
}

// ToggleAnalytics flips the shared analytics preference.
type ToggleAnalytics struct{}

// TrashTag permanently deletes a tag.
type TrashTag struct {
	TagName model.TagName
}

// Logout terminates the session. Terminal for the middleware instance.
type Logout struct{}

// Notifications emitted by the engine

// ConfirmNewNote reconciles a provisional note id with the backend-confirmed
// one. Carries the confirmed data.
type ConfirmNewNote struct {
	OriginalNoteID model.EntityID
	NewNoteID      model.EntityID
	Note           model.Note
}

// ConfirmNewTag reconciles a provisional tag id with the backend-confirmed one.
type ConfirmNewTag struct {
	TagName       model.TagName
	OriginalTagID model.EntityID
	NewTagID      model.EntityID
	Tag           model.Tag
}

// LoadRevisions delivers a note's revision history, sorted ascending by
// version. Consumers replace any previously delivered sequence.
type LoadRevisions struct {
	NoteID    model.EntityID
	Revisions []model.Revision
}

// SetAccountName announces the authenticated account identity.
type SetAccountName struct {
	AccountName string
}

// RemoteNoteUpdate delivers a note changed by another client.
type RemoteNoteUpdate struct {
	NoteID     model.EntityID
	Note       model.Note
	RemoteInfo map[string]any
}

// RemoteTagUpdate delivers a tag changed by another client.
type RemoteTagUpdate struct {
	TagID      model.EntityID
	Tag        model.Tag
	RemoteInfo map[string]any
}

// SubmitPendingChange marks a local change as sent to the backend.
type SubmitPendingChange struct {
	EntityID model.EntityID
	Ccid     string
}

// AcknowledgePendingChange marks a local change as accepted by the backend.
type AcknowledgePendingChange struct {
	EntityID model.EntityID
	Ccid     string
}

// ConnectivityChanged reports backend connection health transitions.
type ConnectivityChanged struct {
	Connected bool
}

func (AddNoteTag) isAction()               {}
func (RemoveNoteTag) isAction()            {}
func (CreateNoteWithID) isAction()         {}
func (EditNote) isAction()                 {}
func (InsertTaskIntoNote) isAction()       {}
func (OpenNote) isAction()                 {}
func (SelectNote) isAction()               {}
func (FilterNotes) isAction()              {}
func (ImportNoteWithID) isAction()         {}
func (MarkdownNote) isAction()             {}
func (PinNote) isAction()                  {}
func (PublishNote) isAction()              {}
func (RestoreNote) isAction()              {}
func (RestoreNoteRevision) isAction()      {}
func (TrashNote) isAction()                {}
func (DeleteNoteForever) isAction()        {}
func (RenameTag) isAction()                {}
func (ReorderTag) isAction()               {}
func (SetAnalytics) isAction()             {}
func (ToggleAnalytics) isAction()          {}
func (TrashTag) isAction()                 {}
func (Logout) isAction()                   {}
func (ConfirmNewNote) isAction()           {}
func (ConfirmNewTag) isAction()            {}
func (LoadRevisions) isAction()            {}
func (SetAccountName) isAction()           {}
func (RemoteNoteUpdate) isAction()         {}
func (RemoteTagUpdate) isAction()          {}
func (SubmitPendingChange) isAction()      {}
func (AcknowledgePendingChange) isAction() {}
func (ConnectivityChanged) isAction()      {}
