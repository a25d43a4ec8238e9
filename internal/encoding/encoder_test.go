package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

func TestEncodeQuadIsStable(t *testing.T) {
	e := NewStatementEncoder()
	s := rdf.NewNamedNode("http://example.org/s")
	p := rdf.NewNamedNode("http://example.org/p")

	k1, v1 := e.EncodeQuad(rdf.NewQuad(s, p, rdf.NewLiteral("o"), rdf.NewDefaultGraph()))
	k2, _ := e.EncodeQuad(rdf.NewQuad(s, p, rdf.NewLiteral("o"), rdf.NewDefaultGraph()))
	k3, _ := e.EncodeQuad(rdf.NewQuad(s, p, rdf.NewLiteral("o"), rdf.NewNamedNode("http://example.org/g")))

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Equal(t, `<http://example.org/s> <http://example.org/p> "o" .`, string(v1))
}

func TestDecodeQuad(t *testing.T) {
	e := NewStatementEncoder()
	q := rdf.NewQuad(
		rdf.NewBlankNode("b0"),
		rdf.NewNamedNode("http://example.org/p"),
		rdf.NewLiteralWithLanguage("chat", "fr"),
		rdf.NewNamedNode("http://example.org/g"),
	)

	_, value := e.EncodeQuad(q)
	decoded, err := e.DecodeQuad(value)
	require.NoError(t, err)
	assert.True(t, decoded.Equals(q))

	_, err = e.DecodeQuad([]byte("not a statement"))
	assert.ErrorContains(t, err, "corrupt statement")
}

func TestGraphKeys(t *testing.T) {
	e := NewStatementEncoder()

	key, name := e.EncodeGraph(rdf.NewDefaultGraph())
	assert.Nil(t, name)
	assert.Equal(t, e.Hash128(""), key)

	g, err := e.DecodeGraph(name)
	require.NoError(t, err)
	assert.True(t, rdf.IsDefaultGraph(g))

	named := rdf.NewNamedNode("http://example.org/g")
	key, name = e.EncodeGraph(named)
	g, err = e.DecodeGraph(name)
	require.NoError(t, err)
	assert.True(t, g.Equals(named))

	stmt := e.Hash128("statement")
	composite := e.GraphStatementKey(key, stmt)
	require.Len(t, composite, 2*HashSize)
	assert.True(t, bytes.HasPrefix(composite, key[:]))
	assert.Equal(t, stmt[:], composite[HashSize:])
}
