package bucket

import (
	"bytes"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Wire schemas for remote-origin payloads. The backend is trusted but other
// clients are not; a malformed entity must not reach the store.

const noteSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["content", "deleted"],
  "properties": {
    "content": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "systemTags": {"type": "array", "items": {"type": "string"}},
    "creationDate": {"type": "number"},
    "modificationDate": {"type": "number"},
    "deleted": {"type": "boolean"},
    "shareURL": {"type": "string"},
    "publishURL": {"type": "string"}
  }
}`

const tagSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "index": {"type": "integer"}
  }
}`

// NoteSchema returns the compiled wire schema for note payloads.
func NoteSchema() *jsonschema.Schema {
	return mustCompileSchema("notewire://schema/note.json", noteSchemaJSON)
}

// TagSchema returns the compiled wire schema for tag payloads.
func TagSchema() *jsonschema.Schema {
	return mustCompileSchema("notewire://schema/tag.json", tagSchemaJSON)
}

func mustCompileSchema(url, src string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(src)))
	if err != nil {
		panic(fmt.Sprintf("parse schema %s: %v", url, err))
	}
	compiler := jsonschema.NewCompiler()
	if err = compiler.AddResource(url, doc); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", url, err))
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", url, err))
	}
	return schema
}

func bytesReader(raw []byte) io.Reader {
	return bytes.NewReader(raw)
}
