package feed

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

// Scope is what a lifter knows about the element being lifted.
type Scope struct {
	Source  any
	BaseIRI string
}

// QuadLifter turns a triple into a quad by assigning it a graph. Values are
// converted to InputType before Lift is called.
type QuadLifter interface {
	InputType() reflect.Type
	Lift(ctx context.Context, scope Scope, v any) (any, error)
}

// QuadSplitter decomposes a quad into its graph and triple. Values are
// converted to InputType before Split is called.
type QuadSplitter interface {
	InputType() reflect.Type
	Split(ctx context.Context, v any) (graph rdf.Term, triple any, err error)
}

// GraphLifter lifts *rdf.Triple into *rdf.Quad in a fixed graph. A nil Graph
// means the default graph.
type GraphLifter struct {
	Graph rdf.Term
}

// DefaultGraphLifter places every triple in the default graph.
func DefaultGraphLifter() *GraphLifter {
	return &GraphLifter{}
}

func (l *GraphLifter) InputType() reflect.Type {
	return dispatch.TypeOf[*rdf.Triple]()
}

func (l *GraphLifter) Lift(_ context.Context, _ Scope, v any) (any, error) {
	t, ok := v.(*rdf.Triple)
	if !ok {
		return nil, fmt.Errorf("graph lifter: unexpected %T", v)
	}
	g := l.Graph
	if g == nil {
		g = rdf.NewDefaultGraph()
	}
	return t.InGraph(g), nil
}

// BaseGraphLifter names the graph after the base IRI of the source being
// parsed, falling back to the default graph when the source has none.
type BaseGraphLifter struct{}

func (BaseGraphLifter) InputType() reflect.Type {
	return dispatch.TypeOf[*rdf.Triple]()
}

func (BaseGraphLifter) Lift(_ context.Context, scope Scope, v any) (any, error) {
	t, ok := v.(*rdf.Triple)
	if !ok {
		return nil, fmt.Errorf("base graph lifter: unexpected %T", v)
	}
	if scope.BaseIRI == "" {
		return t.InGraph(rdf.NewDefaultGraph()), nil
	}
	return t.InGraph(rdf.NewNamedNode(scope.BaseIRI)), nil
}

// GraphSplitter splits *rdf.Quad.
type GraphSplitter struct{}

func (GraphSplitter) InputType() reflect.Type {
	return dispatch.TypeOf[*rdf.Quad]()
}

func (GraphSplitter) Split(_ context.Context, v any) (rdf.Term, any, error) {
	q, ok := v.(*rdf.Quad)
	if !ok {
		return nil, nil, fmt.Errorf("graph splitter: unexpected %T", v)
	}
	g, t := q.Split()
	return g, t, nil
}
