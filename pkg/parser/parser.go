// Package parser defines the contracts between rdfstream and format parsers:
// pull parsers that hand out an Iterator, push parsers that call a Handler,
// and the Registry that finds the parser for a source.
package parser

import (
	"context"
	"iter"
	"reflect"

	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

// Parser describes what a parser consumes and produces.
type Parser interface {
	// SourceTypes lists the concrete source types the parser is registered under.
	SourceTypes() []reflect.Type
	// Accepts refines SourceTypes for a particular source value, for example
	// by checking its declared format.
	Accepts(src any) bool
	// Shape is the arity of produced elements; ShapeUnknown when each element
	// may be either.
	Shape() rdf.Shape
	// ValueType is the concrete representation of produced elements.
	ValueType() reflect.Type
}

// PullParser hands out a lazy iterator over a source.
type PullParser interface {
	Parser
	Open(ctx context.Context, src any) (Iterator, error)
}

// PushParser drives a Handler with every element of a source. It must call
// Start and FinishSource symmetrically, and return any error a Handler method
// returns without further calls.
type PushParser interface {
	Parser
	Parse(ctx context.Context, src any, h Handler) error
}

// Handler receives the output of a push parser. A false result asks the
// parser to stop the current source; an error aborts it and must be returned
// by Parse unchanged.
type Handler interface {
	Start(ctx context.Context, src any) error
	FeedTriple(ctx context.Context, v any) (bool, error)
	FeedQuad(ctx context.Context, v any) (bool, error)
	// Feed receives elements whose shape the producer cannot tell.
	Feed(ctx context.Context, v any) (bool, error)
	FinishSource(ctx context.Context, src any) error
}

// Deliver routes v to the Handler method matching shape.
func Deliver(ctx context.Context, h Handler, shape rdf.Shape, v any) (bool, error) {
	switch shape {
	case rdf.ShapeTriple:
		return h.FeedTriple(ctx, v)
	case rdf.ShapeQuad:
		return h.FeedQuad(ctx, v)
	default:
		return h.Feed(ctx, v)
	}
}

// BaseIRI returns the base IRI carried by src, or "".
func BaseIRI(src any) string {
	if b, ok := src.(BaseIRIer); ok {
		return b.BaseIRI()
	}
	return ""
}

// Sequence is a source that expands lazily into further sources, each
// dispatched independently.
type Sequence interface {
	Sources() iter.Seq[any]
}

// BaseIRIer is implemented by sources that carry a base IRI.
type BaseIRIer interface {
	BaseIRI() string
}

// Namer is implemented by sources with a human readable name.
type Namer interface {
	Name() string
}

// Normalizer expands caller-supplied sources into canonical ones: the result
// is either a source a parser can accept or a Sequence.
type Normalizer interface {
	Normalize(ctx context.Context, src any) (any, error)
}

// NormalizerFunc adapts a function to Normalizer.
type NormalizerFunc func(ctx context.Context, src any) (any, error)

func (f NormalizerFunc) Normalize(ctx context.Context, src any) (any, error) {
	return f(ctx, src)
}

// Identity is the normalizer that returns its input.
var Identity Normalizer = NormalizerFunc(func(_ context.Context, src any) (any, error) {
	return src, nil
})
