// Package source provides the concrete source values rdfstream parsers
// accept, and the Normalizer that turns paths into them.
package source

import (
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Format names a serialization.
type Format string

const (
	FormatUnknown   Format = ""
	FormatNTriples  Format = "ntriples"
	FormatNQuads    Format = "nquads"
	FormatJSONLines Format = "jsonl"
)

var extensions = map[string]Format{
	".nt":       FormatNTriples,
	".ntriples": FormatNTriples,
	".nq":       FormatNQuads,
	".nquads":   FormatNQuads,
	".jsonl":    FormatJSONLines,
	".ndjson":   FormatJSONLines,
}

// FormatForPath guesses a format from a file extension.
func FormatForPath(path string) Format {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// ParseFormat maps a user supplied format name or extension to a Format.
func ParseFormat(name string) Format {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	switch Format(name) {
	case FormatNTriples, FormatNQuads, FormatJSONLines:
		return Format(name)
	}
	return extensions["."+name]
}

// Document is a single serialized input. Exactly one of Path and Reader is
// normally set; parsers open it through Open.
type Document struct {
	Name   string
	Format Format
	Base   string
	Path   string
	Reader io.Reader
}

// Open returns the document content. Readers that are not io.ReadCloser
// are wrapped with a no-op Close.
func (d *Document) Open() (io.ReadCloser, error) {
	if d.Reader != nil {
		if rc, ok := d.Reader.(io.ReadCloser); ok {
			return rc, nil
		}
		return io.NopCloser(d.Reader), nil
	}
	return os.Open(d.Path)
}

func (d *Document) BaseIRI() string {
	return d.Base
}

func (d *Document) String() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Path != "" {
		return d.Path
	}
	return "<reader>"
}

// File is a path on the local file system, either a file or a directory.
type File string

func (f File) Name() string {
	return string(f)
}

// Collection is an in-memory list of elements whose shape is unknown until
// they are read.
type Collection struct {
	Label    string
	Elements []any
}

// NewCollection creates a collection of elements.
func NewCollection(label string, elements ...any) *Collection {
	return &Collection{Label: label, Elements: elements}
}

func (c *Collection) Name() string {
	if c.Label == "" {
		return "collection"
	}
	return c.Label
}

// Seq is an ordered list of sources, each dispatched on its own.
type Seq []any

func (s Seq) Sources() iter.Seq[any] {
	return slices.Values(s)
}

// Lazy is a source sequence produced on demand.
type Lazy iter.Seq[any]

func (l Lazy) Sources() iter.Seq[any] {
	return iter.Seq[any](l)
}
