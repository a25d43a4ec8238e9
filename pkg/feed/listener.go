// Package feed delivers parsed elements to listeners that accept triples,
// quads or both, lifting, splitting, downgrading or converting each element
// until it matches a type the listener declared.
package feed

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/internal/logger"
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

// Listener is the push consumer contract.
//
// TripleType and QuadType name the concrete types the listener wants; a nil
// type means that shape is not wanted, and at least one must be non-nil.
// Returning errors.ErrInterrupted (or any error wrapping it) from any method
// stops all remaining parsing.
type Listener interface {
	TripleType() reflect.Type
	QuadType() reflect.Type

	Triple(ctx context.Context, v any) error
	Quad(ctx context.Context, v any) error

	Start(ctx context.Context, src any) error
	FinishSource(ctx context.Context, src any) error
	// Finish is called exactly once per top-level parse, on every path.
	Finish(ctx context.Context) error

	// OnInconvertibleTriple and OnInconvertibleQuad receive elements whose
	// fallbacks are exhausted. The bool continues the current source.
	OnInconvertibleTriple(ctx context.Context, v any, cause error) (bool, error)
	OnInconvertibleQuad(ctx context.Context, v any, cause error) (bool, error)
	// OnSourceError decides whether the next source is parsed.
	OnSourceError(ctx context.Context, src any, cause error) bool
}

// GraphListener is implemented by triple listeners that want the graph a
// split quad came from.
type GraphListener interface {
	TripleInGraph(ctx context.Context, graph rdf.Term, v any) error
}

// Base is a Listener with the default failure policy: inconvertible elements
// are logged and interrupt parsing, source errors are logged and stop it.
// Embed it and override Triple and/or Quad.
type Base struct {
	Triples reflect.Type
	Quads   reflect.Type
	Logger  *zap.Logger
}

func (b *Base) TripleType() reflect.Type { return b.Triples }
func (b *Base) QuadType() reflect.Type   { return b.Quads }

func (b *Base) Triple(context.Context, any) error {
	return errors.New(errors.ErrorTypeInternal, "listener does not accept triples")
}

func (b *Base) Quad(context.Context, any) error {
	return errors.New(errors.ErrorTypeInternal, "listener does not accept quads")
}

func (b *Base) Start(context.Context, any) error        { return nil }
func (b *Base) FinishSource(context.Context, any) error { return nil }
func (b *Base) Finish(context.Context) error            { return nil }

func (b *Base) OnInconvertibleTriple(ctx context.Context, v any, cause error) (bool, error) {
	b.log(ctx).Error("inconvertible triple",
		zap.String("value_type", typeName(v)),
		zap.Stringer("wanted", b.Triples),
		zap.Error(cause))
	return false, errors.Interrupt(cause)
}

func (b *Base) OnInconvertibleQuad(ctx context.Context, v any, cause error) (bool, error) {
	b.log(ctx).Error("inconvertible quad",
		zap.String("value_type", typeName(v)),
		zap.Stringer("wanted", b.Quads),
		zap.Error(cause))
	return false, errors.Interrupt(cause)
}

func (b *Base) OnSourceError(ctx context.Context, src any, cause error) bool {
	b.log(ctx).Error("source failed",
		zap.String("source", parser.Describe(src)),
		zap.Error(cause))
	return false
}

func (b *Base) log(ctx context.Context) *zap.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return logger.WithContext(ctx)
}

// Funcs builds a Listener from closures. Nil closures fall back to Base.
type Funcs struct {
	Base

	OnTriple              func(ctx context.Context, v any) error
	OnQuad                func(ctx context.Context, v any) error
	OnStart               func(ctx context.Context, src any) error
	OnFinishSource        func(ctx context.Context, src any) error
	OnFinish              func(ctx context.Context) error
	OnTripleInconvertible func(ctx context.Context, v any, cause error) (bool, error)
	OnQuadInconvertible   func(ctx context.Context, v any, cause error) (bool, error)
	OnError               func(ctx context.Context, src any, cause error) bool
}

func (f *Funcs) Triple(ctx context.Context, v any) error {
	if f.OnTriple == nil {
		return f.Base.Triple(ctx, v)
	}
	return f.OnTriple(ctx, v)
}

func (f *Funcs) Quad(ctx context.Context, v any) error {
	if f.OnQuad == nil {
		return f.Base.Quad(ctx, v)
	}
	return f.OnQuad(ctx, v)
}

func (f *Funcs) Start(ctx context.Context, src any) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx, src)
}

func (f *Funcs) FinishSource(ctx context.Context, src any) error {
	if f.OnFinishSource == nil {
		return nil
	}
	return f.OnFinishSource(ctx, src)
}

func (f *Funcs) Finish(ctx context.Context) error {
	if f.OnFinish == nil {
		return nil
	}
	return f.OnFinish(ctx)
}

func (f *Funcs) OnInconvertibleTriple(ctx context.Context, v any, cause error) (bool, error) {
	if f.OnTripleInconvertible == nil {
		return f.Base.OnInconvertibleTriple(ctx, v, cause)
	}
	return f.OnTripleInconvertible(ctx, v, cause)
}

func (f *Funcs) OnInconvertibleQuad(ctx context.Context, v any, cause error) (bool, error) {
	if f.OnQuadInconvertible == nil {
		return f.Base.OnInconvertibleQuad(ctx, v, cause)
	}
	return f.OnQuadInconvertible(ctx, v, cause)
}

func (f *Funcs) OnSourceError(ctx context.Context, src any, cause error) bool {
	if f.OnError == nil {
		return f.Base.OnSourceError(ctx, src, cause)
	}
	return f.OnError(ctx, src, cause)
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
