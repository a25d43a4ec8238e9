package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfstream/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFormats(t *testing.T) {
	assert.Equal(t, FormatNTriples, FormatForPath("a/b.nt"))
	assert.Equal(t, FormatNQuads, FormatForPath("B.NQ"))
	assert.Equal(t, FormatJSONLines, FormatForPath("x.ndjson"))
	assert.Equal(t, FormatUnknown, FormatForPath("x.ttl"))

	assert.Equal(t, FormatNQuads, ParseFormat("nquads"))
	assert.Equal(t, FormatNQuads, ParseFormat(".nq"))
	assert.Equal(t, FormatJSONLines, ParseFormat("JSONL"))
	assert.Equal(t, FormatUnknown, ParseFormat("turtle"))
}

func TestNormalizeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.nq")
	writeFile(t, path, "")

	got, err := Normalizer{}.Normalize(context.Background(), File(path))
	require.NoError(t, err)

	doc, ok := got.(*Document)
	require.True(t, ok)
	assert.Equal(t, FormatNQuads, doc.Format)
	assert.Equal(t, path, doc.Path)
	assert.True(t, strings.HasPrefix(doc.BaseIRI(), "file://"))
	assert.Equal(t, path, doc.String())
}

func TestNormalizeUnknownExtensionUsesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	writeFile(t, path, "")

	got, err := Normalizer{DefaultFormat: FormatNTriples}.Normalize(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, FormatNTriples, got.(*Document).Format)
}

func TestNormalizeDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.nt"), "")
	writeFile(t, filepath.Join(dir, "a.nq"), "")
	writeFile(t, filepath.Join(dir, "sub", "c.jsonl"), "")
	writeFile(t, filepath.Join(dir, "README.md"), "")

	got, err := Normalizer{}.Normalize(context.Background(), File(dir))
	require.NoError(t, err)

	seq, ok := got.(Seq)
	require.True(t, ok)

	var names []string
	for _, s := range seq {
		names = append(names, filepath.Base(s.(*Document).Path))
	}
	assert.Equal(t, []string{"a.nq", "b.nt", "c.jsonl"}, names)
}

func TestNormalizeMissingPath(t *testing.T) {
	_, err := Normalizer{}.Normalize(context.Background(), File(filepath.Join(t.TempDir(), "missing.nt")))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))
}

func TestNormalizeReaderAndDocument(t *testing.T) {
	n := Normalizer{DefaultFormat: FormatNQuads}
	ctx := context.Background()

	got, err := n.Normalize(ctx, io.Reader(strings.NewReader("")))
	require.NoError(t, err)
	doc := got.(*Document)
	assert.Equal(t, FormatNQuads, doc.Format)
	assert.Equal(t, "<reader>", doc.String())

	in := &Document{Name: "inline.nt", Reader: strings.NewReader("")}
	got, err = n.Normalize(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, FormatNTriples, got.(*Document).Format)
	assert.Equal(t, FormatUnknown, in.Format, "the caller's document is not modified")

	known := &Document{Format: FormatJSONLines}
	got, err = n.Normalize(ctx, known)
	require.NoError(t, err)
	assert.Same(t, known, got)
}

func TestNormalizeSlicesAndPassThrough(t *testing.T) {
	ctx := context.Background()

	got, err := Normalizer{}.Normalize(ctx, []any{1, "x"})
	require.NoError(t, err)
	assert.Equal(t, Seq{1, "x"}, got)

	c := NewCollection("", 1, 2)
	got, err = Normalizer{}.Normalize(ctx, c)
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.Equal(t, "collection", c.Name())

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Normalizer{}.Normalize(cctx, c)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocumentOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.nt")
	writeFile(t, path, "content")

	rc, err := (&Document{Path: path}).Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "content", string(data))

	rc, err = (&Document{Reader: strings.NewReader("inline")}).Open()
	require.NoError(t, err)
	data, err = io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "inline", string(data))
}

func TestSeqAndLazy(t *testing.T) {
	assert.Equal(t, []any{1, 2}, slices.Collect(Seq{1, 2}.Sources()))

	lazy := Lazy(func(yield func(any) bool) {
		for i := range 3 {
			if !yield(i) {
				return
			}
		}
	})
	assert.Equal(t, []any{0, 1, 2}, slices.Collect(lazy.Sources()))
}
