// Package rdfconv provides the converters between the representations shipped
// with rdfstream: *rdf.Triple, *rdf.Quad, *rdf.Statement and the lexical
// string forms.
package rdfconv

import (
	"context"
	"fmt"

	"github.com/aleksaelezovic/rdfstream/pkg/convert"
	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
	"github.com/aleksaelezovic/rdfstream/pkg/lexical"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

var (
	// TripleValueToTriple exposes any TripleValue (including *rdf.Statement)
	// as *rdf.Triple. For statements this drops the graph.
	TripleValueToTriple = convert.Func("triple-value->triple",
		func(_ context.Context, v rdf.TripleValue) (*rdf.Triple, error) {
			return v.AsTriple(), nil
		})

	// QuadValueToQuad exposes any QuadValue as *rdf.Quad.
	QuadValueToQuad = convert.Func("quad-value->quad",
		func(_ context.Context, v rdf.QuadValue) (*rdf.Quad, error) {
			return v.AsQuad(), nil
		})

	// QuadToTriple is the downgrade: the graph is discarded.
	QuadToTriple = convert.Func("quad->triple",
		func(_ context.Context, q *rdf.Quad) (*rdf.Triple, error) {
			return rdf.NewTriple(q.Subject, q.Predicate, q.Object), nil
		})

	LexicalTripleToTriple = convert.Func("lexical-triple->triple",
		func(_ context.Context, t lexical.Triple) (*rdf.Triple, error) {
			return parseTriple(t)
		})

	LexicalQuadToQuad = convert.Func("lexical-quad->quad",
		func(_ context.Context, q lexical.Quad) (*rdf.Quad, error) {
			t, err := parseTriple(q.Triple())
			if err != nil {
				return nil, err
			}
			var g rdf.Term = rdf.NewDefaultGraph()
			if q.Graph != "" {
				if g, err = rdf.ParseTerm(q.Graph); err != nil {
					return nil, fmt.Errorf("graph: %w", err)
				}
			}
			return t.InGraph(g), nil
		})

	// LexicalQuadToLexicalTriple is the lexical downgrade.
	LexicalQuadToLexicalTriple = convert.Func("lexical-quad->lexical-triple",
		func(_ context.Context, q lexical.Quad) (lexical.Triple, error) {
			return q.Triple(), nil
		})

	TripleToLexical = convert.Func("triple->lexical-triple",
		func(_ context.Context, t *rdf.Triple) (lexical.Triple, error) {
			return lexical.Triple{
				Subject:   rdf.FormatTerm(t.Subject),
				Predicate: rdf.FormatTerm(t.Predicate),
				Object:    rdf.FormatTerm(t.Object),
			}, nil
		})

	QuadToLexical = convert.Func("quad->lexical-quad",
		func(_ context.Context, q *rdf.Quad) (lexical.Quad, error) {
			out := lexical.Quad{
				Subject:   rdf.FormatTerm(q.Subject),
				Predicate: rdf.FormatTerm(q.Predicate),
				Object:    rdf.FormatTerm(q.Object),
			}
			if !rdf.IsDefaultGraph(q.Graph) {
				out.Graph = rdf.FormatTerm(q.Graph)
			}
			return out, nil
		})
)

// Converters lists every converter of this package.
func Converters() []convert.Converter {
	return []convert.Converter{
		TripleValueToTriple,
		QuadValueToQuad,
		QuadToTriple,
		LexicalTripleToTriple,
		LexicalQuadToQuad,
		LexicalQuadToLexicalTriple,
		TripleToLexical,
		QuadToLexical,
	}
}

// Register declares the rdf supertypes on the registry's hierarchy and adds
// every converter. Triple-to-quad lifting is deliberately absent: assigning
// a graph is a policy supplied as a QuadLifter.
func Register(reg *convert.Registry) {
	h := reg.Hierarchy()
	h.Declare(dispatch.TypeOf[*rdf.Triple](), dispatch.TypeOf[rdf.TripleValue]())
	h.Declare(dispatch.TypeOf[*rdf.Quad](), dispatch.TypeOf[rdf.QuadValue]())
	h.Declare(dispatch.TypeOf[*rdf.Statement](),
		dispatch.TypeOf[rdf.QuadValue](), dispatch.TypeOf[rdf.TripleValue]())

	reg.Register(Converters()...)
}

func parseTriple(t lexical.Triple) (*rdf.Triple, error) {
	s, err := rdf.ParseTerm(t.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	p, err := rdf.ParseTerm(t.Predicate)
	if err != nil {
		return nil, fmt.Errorf("predicate: %w", err)
	}
	o, err := rdf.ParseTerm(t.Object)
	if err != nil {
		return nil, fmt.Errorf("object: %w", err)
	}
	return rdf.NewTriple(s, p, o), nil
}
