package feed

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/internal/logger"
	"github.com/aleksaelezovic/rdfstream/internal/metrics"
	"github.com/aleksaelezovic/rdfstream/pkg/convert"
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

// Feeder wraps a Listener and implements parser.Handler. Each Feed call
// returns whether the current source should continue; a non-nil error
// aborts it, and errors.ErrInterrupted aborts everything.
//
// A Feeder tracks one parse at a time and is not safe for concurrent use.
type Feeder struct {
	listener Listener
	lifter   QuadLifter
	splitter QuadSplitter
	logger   *zap.Logger

	tripleType reflect.Type
	quadType   reflect.Type

	toTriple *convert.Resolver
	toQuad   *convert.Resolver
	toLift   *convert.Resolver
	toSplit  *convert.Resolver

	sources  []any
	bases    []string
	finished bool
}

// Option configures a Feeder.
type Option func(*options)

type options struct {
	converters *convert.Registry
	lifter     QuadLifter
	splitter   QuadSplitter
	logger     *zap.Logger
}

// WithConverters sets the converter registry; convert.Default otherwise.
func WithConverters(reg *convert.Registry) Option {
	return func(o *options) { o.converters = reg }
}

// WithLifter sets the policy used to deliver triples to quad-only listeners.
func WithLifter(l QuadLifter) Option {
	return func(o *options) { o.lifter = l }
}

// WithSplitter sets the policy used to deliver quads to triple-only listeners.
func WithSplitter(s QuadSplitter) Option {
	return func(o *options) { o.splitter = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewFeeder wraps listener. It fails when the listener declares neither a
// triple nor a quad type.
func NewFeeder(listener Listener, opts ...Option) (*Feeder, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.converters == nil {
		o.converters = convert.Default()
	}
	if o.logger == nil {
		o.logger = logger.Get()
	}

	f := &Feeder{
		listener:   listener,
		lifter:     o.lifter,
		splitter:   o.splitter,
		logger:     o.logger.With(zap.String("component", "feeder")),
		tripleType: listener.TripleType(),
		quadType:   listener.QuadType(),
	}
	if f.tripleType == nil && f.quadType == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "listener declares neither a triple nor a quad type")
	}
	if f.tripleType != nil {
		f.toTriple = o.converters.Resolver(f.tripleType)
	}
	if f.quadType != nil {
		f.toQuad = o.converters.Resolver(f.quadType)
	}
	if f.lifter != nil {
		f.toLift = o.converters.Resolver(f.lifter.InputType())
	}
	if f.splitter != nil {
		f.toSplit = o.converters.Resolver(f.splitter.InputType())
	}

	if f.tripleType != nil && f.tripleType == f.quadType {
		f.logger.Warn("listener declares the same type for triples and quads; ambiguous elements are read as quads",
			zap.Stringer("type", f.tripleType))
	}
	return f, nil
}

// Listener returns the wrapped listener.
func (f *Feeder) Listener() Listener {
	return f.listener
}

// Source returns the innermost active source, or nil.
func (f *Feeder) Source() any {
	if len(f.sources) == 0 {
		return nil
	}
	return f.sources[len(f.sources)-1]
}

// BaseIRI returns the base IRI of the innermost active source that has one.
func (f *Feeder) BaseIRI() string {
	for i := len(f.bases) - 1; i >= 0; i-- {
		if f.bases[i] != "" {
			return f.bases[i]
		}
	}
	return ""
}

// Depth returns the number of active sources.
func (f *Feeder) Depth() int {
	return len(f.sources)
}

// Start marks src active and notifies the listener. The source is active
// even when the listener fails, so a FinishSource must follow.
func (f *Feeder) Start(ctx context.Context, src any) error {
	f.sources = append(f.sources, src)
	f.bases = append(f.bases, parser.BaseIRI(src))
	return f.listener.Start(ctx, src)
}

// FinishSource closes src, which must be the innermost active source.
func (f *Feeder) FinishSource(ctx context.Context, src any) error {
	if len(f.sources) == 0 {
		return errors.Newf(errors.ErrorTypeInternal, "finish of %s without start", parser.Describe(src))
	}
	top := f.sources[len(f.sources)-1]
	defer func() {
		f.sources = f.sources[:len(f.sources)-1]
		f.bases = f.bases[:len(f.bases)-1]
	}()

	if !sameSource(top, src) {
		return errors.Newf(errors.ErrorTypeInternal, "finish of %s while %s is active",
			parser.Describe(src), parser.Describe(top))
	}
	return f.listener.FinishSource(ctx, src)
}

// Finish notifies the listener that parsing is over. Later calls are no-ops.
func (f *Feeder) Finish(ctx context.Context) error {
	if f.finished {
		return nil
	}
	f.finished = true
	if len(f.sources) > 0 {
		f.logger.Warn("finish with active sources", zap.Int("depth", len(f.sources)))
	}
	return f.listener.Finish(ctx)
}

// FeedTriple delivers a triple-shaped value.
func (f *Feeder) FeedTriple(ctx context.Context, v any) (bool, error) {
	d, err := f.resolveTriple(ctx, v)
	if err != nil {
		return f.reject(ctx, rdf.ShapeTriple, v, err)
	}
	return true, f.deliver(ctx, d)
}

// FeedQuad delivers a quad-shaped value.
func (f *Feeder) FeedQuad(ctx context.Context, v any) (bool, error) {
	d, err := f.resolveQuad(ctx, v)
	if err != nil {
		return f.reject(ctx, rdf.ShapeQuad, v, err)
	}
	return true, f.deliver(ctx, d)
}

// Feed delivers a value whose shape the producer does not know. The
// guessed shape is tried first, then the other one when the listener
// declared both; failures are reported under the guess.
func (f *Feeder) Feed(ctx context.Context, v any) (bool, error) {
	guess := f.Guess(v)

	d, err := f.resolve(ctx, guess, v)
	if err != nil && f.tripleType != nil && f.quadType != nil {
		var retryErr error
		if d, retryErr = f.resolve(ctx, guess.Opposite(), v); retryErr == nil {
			err = nil
		}
	}
	if err != nil {
		return f.reject(ctx, guess, v, err)
	}
	return true, f.deliver(ctx, d)
}

// Guess picks the shape v is first read as:
//  1. the only declared shape;
//  2. quad when both declared types are identical;
//  3. the declared type v is an instance of, or the more specific one when
//     it is an instance of both;
//  4. the declared type that is not a supertype of the other, quad when
//     they are unrelated.
func (f *Feeder) Guess(v any) rdf.Shape {
	tt, qt := f.tripleType, f.quadType
	switch {
	case qt == nil:
		return rdf.ShapeTriple
	case tt == nil:
		return rdf.ShapeQuad
	case tt == qt:
		return rdf.ShapeQuad
	}

	tripleSub := tt.AssignableTo(qt) // triple type is the more specific one
	quadSub := qt.AssignableTo(tt)

	if v != nil {
		vt := reflect.TypeOf(v)
		isTriple, isQuad := vt.AssignableTo(tt), vt.AssignableTo(qt)
		switch {
		case isTriple && !isQuad:
			return rdf.ShapeTriple
		case isQuad && !isTriple:
			return rdf.ShapeQuad
		case isTriple && isQuad && tripleSub && !quadSub:
			return rdf.ShapeTriple
		case isTriple && isQuad && quadSub && !tripleSub:
			return rdf.ShapeQuad
		}
	}

	if tripleSub && !quadSub {
		return rdf.ShapeTriple
	}
	return rdf.ShapeQuad
}

// delivery is a value ready for the listener.
type delivery struct {
	value any
	shape rdf.Shape
	graph rdf.Term // set for triples obtained by splitting
}

func (f *Feeder) resolve(ctx context.Context, shape rdf.Shape, v any) (delivery, error) {
	if shape == rdf.ShapeTriple {
		return f.resolveTriple(ctx, v)
	}
	return f.resolveQuad(ctx, v)
}

func (f *Feeder) resolveTriple(ctx context.Context, v any) (delivery, error) {
	if f.tripleType != nil {
		out, err := f.toTriple.Convert(ctx, v)
		if err != nil {
			return delivery{}, err
		}
		return delivery{value: out, shape: rdf.ShapeTriple}, nil
	}

	var liftErr error
	if f.lifter != nil {
		out, err := f.lift(ctx, v)
		if err == nil {
			return delivery{value: out, shape: rdf.ShapeQuad}, nil
		}
		liftErr = err
	}

	out, err := f.toQuad.Convert(ctx, v)
	if err != nil {
		if liftErr != nil {
			return delivery{}, liftErr
		}
		return delivery{}, err
	}
	return delivery{value: out, shape: rdf.ShapeQuad}, nil
}

func (f *Feeder) lift(ctx context.Context, v any) (any, error) {
	in, err := f.toLift.Convert(ctx, v)
	if err != nil {
		return nil, err
	}
	lifted, err := f.lifter.Lift(ctx, Scope{Source: f.Source(), BaseIRI: f.BaseIRI()}, in)
	if err != nil {
		return nil, convert.Inconvertible(v, f.quadType, err)
	}
	return f.toQuad.Convert(ctx, lifted)
}

func (f *Feeder) resolveQuad(ctx context.Context, v any) (delivery, error) {
	if f.quadType != nil {
		out, err := f.toQuad.Convert(ctx, v)
		if err != nil {
			return delivery{}, err
		}
		return delivery{value: out, shape: rdf.ShapeQuad}, nil
	}

	var splitErr error
	if f.splitter != nil {
		d, err := f.split(ctx, v)
		if err == nil {
			return d, nil
		}
		splitErr = err
	}

	out, err := f.toTriple.Convert(ctx, v)
	if err != nil {
		if splitErr != nil {
			return delivery{}, splitErr
		}
		return delivery{}, err
	}
	return delivery{value: out, shape: rdf.ShapeTriple}, nil
}

func (f *Feeder) split(ctx context.Context, v any) (delivery, error) {
	in, err := f.toSplit.Convert(ctx, v)
	if err != nil {
		return delivery{}, err
	}
	graph, triple, err := f.splitter.Split(ctx, in)
	if err != nil {
		return delivery{}, convert.Inconvertible(v, f.tripleType, err)
	}
	out, err := f.toTriple.Convert(ctx, triple)
	if err != nil {
		return delivery{}, err
	}
	return delivery{value: out, shape: rdf.ShapeTriple, graph: graph}, nil
}

func (f *Feeder) deliver(ctx context.Context, d delivery) error {
	metrics.ElementsDelivered.WithLabelValues(d.shape.String()).Inc()
	if d.shape == rdf.ShapeQuad {
		return f.listener.Quad(ctx, d.value)
	}
	if d.graph != nil {
		if gl, ok := f.listener.(GraphListener); ok {
			return gl.TripleInGraph(ctx, d.graph, d.value)
		}
	}
	return f.listener.Triple(ctx, d.value)
}

// reject reports v after every fallback for shape failed. Triples headed
// for a quad-only listener are reported as quads and vice versa.
func (f *Feeder) reject(ctx context.Context, shape rdf.Shape, v any, cause error) (bool, error) {
	reported := shape
	switch {
	case shape == rdf.ShapeTriple && f.tripleType == nil:
		reported = rdf.ShapeQuad
	case shape == rdf.ShapeQuad && f.quadType == nil:
		reported = rdf.ShapeTriple
	}

	metrics.ElementsInconvertible.WithLabelValues(reported.String()).Inc()
	f.logger.Debug("element inconvertible",
		zap.String("value_type", typeName(v)),
		zap.Stringer("shape", reported),
		zap.Error(cause))

	if reported == rdf.ShapeTriple {
		return f.listener.OnInconvertibleTriple(ctx, v, cause)
	}
	return f.listener.OnInconvertibleQuad(ctx, v, cause)
}

// sameSource compares sources by identity where Go allows it. Sources of
// incomparable types are assumed to match.
func sameSource(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return true
	}
	return a == b
}
