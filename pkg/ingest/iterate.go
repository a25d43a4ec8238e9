package ingest

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"reflect"
	"slices"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/pkg/bridge"
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
	"github.com/aleksaelezovic/rdfstream/pkg/feed"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

// request is what an Iterate caller asked for.
type request struct {
	shape     rdf.Shape
	valueType reflect.Type
}

// Iterate returns a lazy iterator over every element of sources, converted
// to valueType and read as shape. Sources are opened one at a time, in
// order, and each is closed before the next opens. The iterator must be
// closed.
func (e *Engine) Iterate(ctx context.Context, shape rdf.Shape, valueType reflect.Type, sources ...any) (parser.Iterator, error) {
	if shape != rdf.ShapeTriple && shape != rdf.ShapeQuad {
		return nil, errors.Newf(errors.ErrorTypeConfig, "iterate requires a triple or quad shape, got %s", shape)
	}
	if valueType == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "iterate requires a value type")
	}

	req := request{shape: shape, valueType: valueType}
	switch len(sources) {
	case 0:
		return parser.Empty(), nil
	case 1:
		return e.open(ctx, req, sources[0])
	default:
		return e.flatten(req, slices.Values(sources)), nil
	}
}

// open normalizes src and builds the iterator for it.
func (e *Engine) open(ctx context.Context, req request, src any) (parser.Iterator, error) {
	norm, err := e.normalizer.Normalize(ctx, src)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, fmt.Sprintf("normalizing %s", parser.Describe(src)))
	}
	if seq, ok := norm.(parser.Sequence); ok {
		return e.flatten(req, seq.Sources()), nil
	}

	if p, ok := e.parsers.FindPullParser(norm); ok {
		it, err := p.Open(ctx, norm)
		if err != nil {
			return nil, wrapParse(err, norm)
		}
		return e.convertPull(req, p, norm, it)
	}

	if p, ok := e.parsers.FindPushParser(norm); ok {
		b, err := bridge.New(ctx, e.pool, p, norm, req.shape, req.valueType,
			bridge.WithQueueCapacity(e.queueCapacity),
			bridge.WithSkipInconvertible(e.skipInconvertible),
			bridge.WithFeedOptions(e.feedOptions()...),
			bridge.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	return nil, noParser(norm)
}

func noParser(src any) error {
	return errors.Newf(errors.ErrorTypeNoParser, "no parser accepts %s", parser.Describe(src)).
		WithDetail("source_type", fmt.Sprintf("%T", src))
}

func wrapParse(err error, src any) error {
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		return err
	}
	return errors.Wrap(err, errors.ErrorTypeParse, fmt.Sprintf("parsing %s", parser.Describe(src)))
}

// flatIterator concatenates the iterators of a source sequence.
type flatIterator struct {
	engine *Engine
	req    request

	next func() (any, bool)
	stop func()

	current parser.Iterator
	last    any
	closed  bool
}

func (e *Engine) flatten(req request, sources iter.Seq[any]) *flatIterator {
	next, stop := iter.Pull(sources)
	return &flatIterator{engine: e, req: req, next: next, stop: stop}
}

func (f *flatIterator) Next(ctx context.Context) (any, bool, error) {
	if f.closed {
		return nil, false, nil
	}
	for {
		if f.current == nil {
			src, ok := f.next()
			if !ok {
				return nil, false, nil
			}
			it, err := f.engine.open(ctx, f.req, src)
			if err != nil {
				return nil, false, err
			}
			f.current = it
		}

		v, ok, err := f.current.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if ok {
			f.last = f.current.Source()
			return v, true, nil
		}

		err = f.current.Close()
		f.current = nil
		if err != nil {
			return nil, false, err
		}
	}
}

func (f *flatIterator) Source() any {
	return f.last
}

func (f *flatIterator) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.stop()
	if f.current != nil {
		err := f.current.Close()
		f.current = nil
		return err
	}
	return nil
}

// pullIterator runs the elements of a pull parser through a feeder whose
// listener keeps the last delivered value.
type pullIterator struct {
	inner  parser.Iterator
	shape  rdf.Shape
	src    any
	feeder *feed.Feeder
	slot   *slotListener

	started bool
	done    bool
	closed  bool
}

func (e *Engine) convertPull(req request, p parser.PullParser, src any, inner parser.Iterator) (parser.Iterator, error) {
	slot := &slotListener{Base: feed.Base{Logger: e.logger}, req: req, skip: e.skipInconvertible, src: src}
	feeder, err := feed.NewFeeder(slot, e.feedOptions()...)
	if err != nil {
		inner.Close()
		return nil, err
	}
	return &pullIterator{inner: inner, shape: p.Shape(), src: src, feeder: feeder, slot: slot}, nil
}

func (it *pullIterator) Next(ctx context.Context) (any, bool, error) {
	if it.done || it.closed {
		return nil, false, nil
	}
	if !it.started {
		it.started = true
		if err := it.feeder.Start(ctx, it.src); err != nil {
			return nil, false, it.finish(ctx, err)
		}
	}

	for {
		v, ok, err := it.inner.Next(ctx)
		if err != nil {
			return nil, false, it.finish(ctx, wrapParse(err, it.src))
		}
		if !ok {
			return nil, false, it.finish(ctx, nil)
		}

		cont, err := parser.Deliver(ctx, it.feeder, it.shape, v)
		if err != nil {
			return nil, false, it.finish(ctx, err)
		}
		if out, ok := it.slot.take(); ok {
			if !cont {
				it.done = true
			}
			return out, true, nil
		}
		if !cont {
			return nil, false, it.finish(ctx, nil)
		}
	}
}

// finish ends the source once, returning err or the FinishSource error.
func (it *pullIterator) finish(ctx context.Context, err error) error {
	it.done = true
	if it.feeder.Depth() > 0 {
		if ferr := it.feeder.FinishSource(ctx, it.src); err == nil {
			err = ferr
		}
	}
	return err
}

func (it *pullIterator) Source() any {
	return it.inner.Source()
}

func (it *pullIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.feeder.Depth() > 0 {
		it.feeder.FinishSource(context.Background(), it.src)
	}
	return it.inner.Close()
}

// slotListener is the listener behind a pullIterator.
type slotListener struct {
	feed.Base
	req  request
	skip bool
	src  any

	value any
	full  bool
}

func (l *slotListener) TripleType() reflect.Type {
	if l.req.shape == rdf.ShapeTriple {
		return l.req.valueType
	}
	return nil
}

func (l *slotListener) QuadType() reflect.Type {
	if l.req.shape == rdf.ShapeQuad {
		return l.req.valueType
	}
	return nil
}

func (l *slotListener) Triple(_ context.Context, v any) error {
	l.value, l.full = v, true
	return nil
}

func (l *slotListener) Quad(_ context.Context, v any) error {
	l.value, l.full = v, true
	return nil
}

func (l *slotListener) OnInconvertibleTriple(_ context.Context, v any, cause error) (bool, error) {
	return l.inconvertible(v, cause)
}

func (l *slotListener) OnInconvertibleQuad(_ context.Context, v any, cause error) (bool, error) {
	return l.inconvertible(v, cause)
}

func (l *slotListener) inconvertible(v any, cause error) (bool, error) {
	if l.skip {
		l.Logger.Debug("skipping inconvertible element", zap.String("value_type", fmt.Sprintf("%T", v)))
		return true, nil
	}
	return false, errors.Wrap(cause, errors.ErrorTypeInconvertible,
		fmt.Sprintf("element of %T from %s", v, parser.Describe(l.src)))
}

func (l *slotListener) take() (any, bool) {
	if !l.full {
		return nil, false
	}
	v := l.value
	l.value, l.full = nil, false
	return v, true
}
