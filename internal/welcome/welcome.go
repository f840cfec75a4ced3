// Package welcome provides the canned first-run document. The document is an
// embedded markdown file with optional YAML frontmatter carrying the tags the
// seeded note starts with.
package welcome

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/notewire/notewire/internal/core/model"
)

//go:embed welcome.md
var welcomeDoc []byte

// frontmatter is the metadata block the welcome document may open with.
type frontmatter struct {
	Tags       []string `yaml:"tags"`
	SystemTags []string `yaml:"systemTags"`
}

// Note parses the embedded welcome document into a note ready for creation.
func Note() (model.Note, error) {
	return parse(welcomeDoc)
}

func parse(doc []byte) (model.Note, error) {
	note := model.NewNote()

	if !bytes.HasPrefix(doc, []byte("---\n")) {
		note.Content = string(doc)
		return note, nil
	}

	rest := doc[4:]
	idx := bytes.Index(rest, []byte("\n---"))
	if idx < 0 {
		return model.Note{}, errors.New("welcome document: frontmatter not closed")
	}

	var meta frontmatter
	if err := yaml.Unmarshal(rest[:idx], &meta); err != nil {
		return model.Note{}, fmt.Errorf("welcome document frontmatter: %w", err)
	}

	for _, t := range meta.Tags {
		note.Tags = append(note.Tags, model.TagName(t))
	}
	note.SystemTags = append(note.SystemTags, meta.SystemTags...)

	content := rest[idx+len("\n---"):]
	note.Content = string(bytes.TrimPrefix(content, []byte("\n")))
	return note, nil
}
