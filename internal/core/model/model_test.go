package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeOverlaysNonZeroFields(t *testing.T) {
	base := NewNote()
	merged := base.Merge(Note{Content: "hello", Tags: []TagName{"work"}})

	assert.Equal(t, "hello", merged.Content)
	assert.Equal(t, []TagName{"work"}, merged.Tags)
	assert.Equal(t, base.CreationDate, merged.CreationDate)
	assert.Equal(t, []string{}, merged.SystemTags)
}

func TestMergeKeepsBaseWhenOtherZero(t *testing.T) {
	base := NewNote()
	base.Content = "kept"
	merged := base.Merge(Note{})

	assert.Equal(t, "kept", merged.Content)
	assert.False(t, merged.Deleted)
}

func TestTagNameLower(t *testing.T) {
	assert.Equal(t, "work", TagName("Work").Lower())
	assert.Equal(t, TagName("Work").Lower(), TagName("WORK").Lower())
}

func TestPreferencesAnalytics(t *testing.T) {
	var p Preferences
	assert.False(t, p.AnalyticsEnabled())

	p = Preferences{"theme": "dark"}
	out := p.WithAnalytics(true)
	assert.True(t, out.AnalyticsEnabled())
	assert.Equal(t, "dark", out["theme"])

	// the receiver is untouched
	assert.False(t, p.AnalyticsEnabled())
}

func TestUnixSecondsPrecision(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 500_000_000, time.UTC)
	assert.InDelta(t, float64(ts.Unix())+0.5, Unix(ts), 0.001)
}
