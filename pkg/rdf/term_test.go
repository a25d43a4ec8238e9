package rdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTermTypes(t *testing.T) {
	tests := []struct {
		name string
		term Term
		want TermType
		str  string
	}{
		{"named node", NewNamedNode("http://example.org/resource"), TermTypeNamedNode, "<http://example.org/resource>"},
		{"blank node", NewBlankNode("b1"), TermTypeBlankNode, "_:b1"},
		{"plain literal", NewLiteral("hello"), TermTypeLiteral, `"hello"`},
		{"language literal", NewLiteralWithLanguage("hello", "EN"), TermTypeLiteral, `"hello"@en`},
		{"typed literal", NewIntegerLiteral(42), TermTypeLiteral, `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"default graph", NewDefaultGraph(), TermTypeDefaultGraph, "DEFAULT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.term.Type())
			assert.Equal(t, tt.str, tt.term.String())
		})
	}
}

func TestTermEquals(t *testing.T) {
	iri := NewNamedNode("http://example.org/a")

	assert.True(t, iri.Equals(NewNamedNode("http://example.org/a")))
	assert.False(t, iri.Equals(NewNamedNode("http://example.org/b")))
	assert.False(t, iri.Equals(NewLiteral("http://example.org/a")))

	assert.True(t, NewBlankNode("x").Equals(NewBlankNode("x")))
	assert.False(t, NewBlankNode("x").Equals(NewNamedNode("x")))

	assert.True(t, NewLiteralWithLanguage("a", "en").Equals(NewLiteralWithLanguage("a", "en")))
	assert.False(t, NewLiteralWithLanguage("a", "en").Equals(NewLiteralWithLanguage("a", "de")))
	assert.True(t, NewBooleanLiteral(true).Equals(NewLiteralWithDatatype("true", XSDBoolean)))
	assert.False(t, NewLiteral("1").Equals(NewIntegerLiteral(1)))
	assert.True(t, NewLiteral("a").Equals(NewLiteralWithDatatype("a", XSDString)))
	assert.True(t, NewLiteralWithLanguage("a", "EN").Equals(NewLiteralWithLanguage("a", "en")))
	assert.False(t, NewLiteralWithLanguage("a", "en").Equals(NewLiteral("a")))

	assert.True(t, NewDefaultGraph().Equals(NewDefaultGraph()))
}

func TestLiteralDatatypeIRI(t *testing.T) {
	assert.Equal(t, XSDString.IRI, NewLiteral("a").DatatypeIRI())
	assert.Equal(t, RDFLangString.IRI, NewLiteralWithLanguage("a", "en").DatatypeIRI())
	assert.Equal(t, XSDDouble.IRI, NewDoubleLiteral(1.5).DatatypeIRI())
	assert.Equal(t, "1.5", NewDoubleLiteral(1.5).Value)
	assert.Equal(t, "unknown", TermType(0).String())
}

func TestDateTimeLiteral(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	lit := NewDateTimeLiteral(ts)

	assert.Equal(t, "2024-01-15T10:30:00Z", lit.Value)
	assert.True(t, lit.Datatype.Equals(XSDDateTime))
}

func TestIsDefaultGraph(t *testing.T) {
	assert.True(t, IsDefaultGraph(nil))
	assert.True(t, IsDefaultGraph(NewDefaultGraph()))
	assert.False(t, IsDefaultGraph(NewNamedNode("http://example.org/g")))
}

func TestQuadEqualsTreatsNilGraphAsDefault(t *testing.T) {
	s, p, o := NewNamedNode("http://example.org/s"), NewNamedNode("http://example.org/p"), NewLiteral("o")

	assert.True(t, NewQuad(s, p, o, nil).Equals(NewQuad(s, p, o, NewDefaultGraph())))
	assert.False(t, NewQuad(s, p, o, nil).Equals(NewQuad(s, p, o, NewNamedNode("http://example.org/g"))))
	assert.True(t, NewTriple(s, p, o).InGraph(nil).Equals(NewQuad(s, p, o, nil)))
}

func TestQuadSplit(t *testing.T) {
	g := NewNamedNode("http://example.org/g")
	q := NewQuad(NewBlankNode("a"), NewNamedNode("http://example.org/p"), NewLiteral("v"), g)

	graph, triple := q.Split()
	assert.Same(t, g, graph)
	assert.True(t, triple.Equals(NewTriple(q.Subject, q.Predicate, q.Object)))
	assert.True(t, triple.InGraph(graph).Equals(q))
}

func TestStatementShapes(t *testing.T) {
	s, p, o := NewNamedNode("http://example.org/s"), NewNamedNode("http://example.org/p"), NewLiteral("o")

	triple := &Statement{S: s, P: p, O: o}
	assert.False(t, triple.IsQuad())
	assert.True(t, IsDefaultGraph(triple.AsQuad().Graph))

	quad := &Statement{S: s, P: p, O: o, G: NewNamedNode("http://example.org/g")}
	assert.True(t, quad.IsQuad())
	assert.True(t, quad.AsTriple().Equals(NewTriple(s, p, o)))
}

func TestShapeOpposite(t *testing.T) {
	assert.Equal(t, ShapeQuad, ShapeTriple.Opposite())
	assert.Equal(t, ShapeTriple, ShapeQuad.Opposite())
	assert.Equal(t, ShapeUnknown, ShapeUnknown.Opposite())
	assert.Equal(t, "quad", ShapeQuad.String())
}
