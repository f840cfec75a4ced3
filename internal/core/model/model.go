package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityID is an opaque entity key. Provisional ids are generated locally and
// replaced by backend-confirmed ids exactly once.
type EntityID string

// TagName is a display tag name. Uniqueness is case-insensitive.
type TagName string

// NewEntityID generates a provisional entity id.
func NewEntityID() EntityID {
	return EntityID(uuid.NewString())
}

// Lower returns the canonical lookup form of a tag name.
func (n TagName) Lower() string {
	return strings.ToLower(string(n))
}

// Note is the canonical local representation of a note. Timestamps are unix
// seconds, matching the backend wire format.
type Note struct {
	Content          string    `json:"content"`
	Tags             []TagName `json:"tags"`
	SystemTags       []string  `json:"systemTags"`
	CreationDate     float64   `json:"creationDate"`
	ModificationDate float64   `json:"modificationDate"`
	Deleted          bool      `json:"deleted"`
	ShareURL         string    `json:"shareURL"`
	PublishURL       string    `json:"publishURL"`
}

// NewNote returns a note with default field values and both dates set to now.
func NewNote() Note {
	now := Unix(time.Now())
	return Note{
		Content:          "",
		Tags:             []TagName{},
		SystemTags:       []string{},
		CreationDate:     now,
		ModificationDate: now,
		Deleted:          false,
		ShareURL:         "",
		PublishURL:       "",
	}
}

// Merge overlays the non-zero fields of other onto a copy of n. Slices are
// replaced, not appended.
func (n Note) Merge(other Note) Note {
	out := n
	if other.Content != "" {
		out.Content = other.Content
	}
	if other.Tags != nil {
		out.Tags = other.Tags
	}
	if other.SystemTags != nil {
		out.SystemTags = other.SystemTags
	}
	if other.CreationDate != 0 {
		out.CreationDate = other.CreationDate
	}
	if other.ModificationDate != 0 {
		out.ModificationDate = other.ModificationDate
	}
	if other.Deleted {
		out.Deleted = true
	}
	if other.ShareURL != "" {
		out.ShareURL = other.ShareURL
	}
	if other.PublishURL != "" {
		out.PublishURL = other.PublishURL
	}
	return out
}

// Tag is a named label. Index carries the display position so reordering one
// tag re-synchronizes the whole set.
type Tag struct {
	Name  TagName `json:"name"`
	Index int     `json:"index"`
}

// Preferences is the single shared preferences record. It is kept as a loose
// map so fields this engine does not understand survive read-modify-write
// cycles verbatim.
type Preferences map[string]any

// PreferencesKey is the well-known key of the preferences record.
const PreferencesKey EntityID = "preferences-key"

// AnalyticsEnabled reports the analytics_enabled field, false when absent.
func (p Preferences) AnalyticsEnabled() bool {
	v, ok := p["analytics_enabled"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// WithAnalytics returns a copy of p with analytics_enabled set. All other
// fields are carried over unchanged.
func (p Preferences) WithAnalytics(enabled bool) Preferences {
	out := make(Preferences, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out["analytics_enabled"] = enabled
	return out
}

// Revision is one historical version of a note. Immutable once fetched.
type Revision struct {
	Version int  `json:"version"`
	Data    Note `json:"data"`
}

// Unix converts a time to the backend's unix-seconds representation.
func Unix(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}
