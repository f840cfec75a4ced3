package welcome

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/notewire/internal/core/model"
)

func TestNoteParsesEmbeddedDocument(t *testing.T) {
	note, err := Note()
	require.NoError(t, err)

	assert.Contains(t, note.SystemTags, "markdown")
	assert.True(t, strings.HasPrefix(note.Content, "# Welcome"))
	assert.False(t, note.Deleted)
	assert.NotZero(t, note.CreationDate)
}

func TestParseWithoutFrontmatter(t *testing.T) {
	note, err := parse([]byte("plain content"))
	require.NoError(t, err)

	assert.Equal(t, "plain content", note.Content)
	assert.Empty(t, note.SystemTags)
}

func TestParseFrontmatterTags(t *testing.T) {
	doc := []byte("---\ntags:\n  - getting-started\nsystemTags:\n  - pinned\n---\nbody")
	note, err := parse(doc)
	require.NoError(t, err)

	assert.Equal(t, []model.TagName{"getting-started"}, note.Tags)
	assert.Equal(t, "body", note.Content)
	assert.Contains(t, note.SystemTags, "pinned")
}

func TestParseUnclosedFrontmatter(t *testing.T) {
	_, err := parse([]byte("---\ntags: [a]\nno closing fence"))
	assert.Error(t, err)
}
