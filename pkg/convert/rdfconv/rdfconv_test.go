package rdfconv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfstream/pkg/convert"
	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
	"github.com/aleksaelezovic/rdfstream/pkg/lexical"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

func newRegistry() *convert.Registry {
	reg := convert.NewRegistry(dispatch.NewHierarchy())
	Register(reg)
	return reg
}

var (
	alice = rdf.NewNamedNode("http://example.org/alice")
	name  = rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	graph = rdf.NewNamedNode("http://example.org/g")
)

func TestQuadDowngradesToTriple(t *testing.T) {
	r := newRegistry().Resolver(dispatch.TypeOf[*rdf.Triple]())

	out, err := r.Convert(context.Background(), rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), graph))
	require.NoError(t, err)
	assert.True(t, out.(*rdf.Triple).Equals(rdf.NewTriple(alice, name, rdf.NewLiteral("Alice"))))
}

func TestStatementConvertsBothWays(t *testing.T) {
	reg := newRegistry()
	stmt := &rdf.Statement{S: alice, P: name, O: rdf.NewLiteral("Alice")}

	triple, err := reg.Resolver(dispatch.TypeOf[*rdf.Triple]()).Convert(context.Background(), stmt)
	require.NoError(t, err)
	assert.IsType(t, &rdf.Triple{}, triple)

	quad, err := reg.Resolver(dispatch.TypeOf[*rdf.Quad]()).Convert(context.Background(), stmt)
	require.NoError(t, err)
	assert.True(t, rdf.IsDefaultGraph(quad.(*rdf.Quad).Graph))
}

func TestTripleDoesNotLiftToQuad(t *testing.T) {
	r := newRegistry().Resolver(dispatch.TypeOf[*rdf.Quad]())

	_, ok := r.Resolve(dispatch.TypeOf[*rdf.Triple]())
	assert.False(t, ok)
	_, ok = r.Resolve(dispatch.TypeOf[lexical.Triple]())
	assert.False(t, ok)
}

func TestLexicalForms(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()

	lq := lexical.Quad{
		Subject:   "<http://example.org/alice>",
		Predicate: "<http://xmlns.com/foaf/0.1/name>",
		Object:    `"Alice"@en`,
		Graph:     "<http://example.org/g>",
	}

	quad, err := reg.Resolver(dispatch.TypeOf[*rdf.Quad]()).Convert(ctx, lq)
	require.NoError(t, err)
	assert.True(t, quad.(*rdf.Quad).Equals(rdf.NewQuad(alice, name, rdf.NewLiteralWithLanguage("Alice", "en"), graph)))

	// lexical quad -> lexical triple -> triple is as short as quad -> triple
	triple, err := reg.Resolver(dispatch.TypeOf[*rdf.Triple]()).Convert(ctx, lq)
	require.NoError(t, err)
	assert.True(t, triple.(*rdf.Triple).Equals(rdf.NewTriple(alice, name, rdf.NewLiteralWithLanguage("Alice", "en"))))

	back, err := reg.Resolver(dispatch.TypeOf[lexical.Quad]()).Convert(ctx, quad)
	require.NoError(t, err)
	assert.Equal(t, lq, back)
}

func TestLexicalDefaultGraph(t *testing.T) {
	reg := newRegistry()

	out, err := reg.Resolver(dispatch.TypeOf[lexical.Quad]()).Convert(context.Background(),
		rdf.NewQuad(alice, name, rdf.NewLiteral("A"), rdf.NewDefaultGraph()))
	require.NoError(t, err)
	assert.Empty(t, out.(lexical.Quad).Graph)
}

func TestMalformedLexicalIsInconvertible(t *testing.T) {
	r := newRegistry().Resolver(dispatch.TypeOf[*rdf.Triple]())

	_, err := r.Convert(context.Background(), lexical.Triple{Subject: "alice", Predicate: "<http://example.org/p>", Object: `"x"`})
	var inconvertible *convert.InconvertibleError
	require.ErrorAs(t, err, &inconvertible)
	assert.Contains(t, err.Error(), "subject")
}
