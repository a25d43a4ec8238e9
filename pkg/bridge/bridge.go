// Package bridge runs a push parser on a pool worker and exposes its output
// as a blocking pull iterator.
//
// The worker feeds a bounded queue; a full queue blocks it, which is the only
// flow control. End of stream is a sentinel item enqueued after any failure
// is recorded, so a consumer sees every element produced before the failure.
// Close asks the worker to stop and waits, without a timeout, until it has.
package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/internal/logger"
	"github.com/aleksaelezovic/rdfstream/internal/metrics"
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
	"github.com/aleksaelezovic/rdfstream/pkg/feed"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

// DefaultQueueCapacity is the number of elements a worker may run ahead of
// its consumer.
const DefaultQueueCapacity = 1024

var tracer = otel.Tracer("rdfstream.bridge")

// errAborted unwinds a worker whose consumer closed the bridge. Parsers pass
// it through like any handler error; it is never reported.
var errAborted = stderrors.New("bridge: consumer closed")

// Option configures a Bridge.
type Option func(*options)

type options struct {
	capacity          int
	feedOptions       []feed.Option
	skipInconvertible bool
	logger            *zap.Logger
}

// WithQueueCapacity sets the queue bound; values < 1 are ignored.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithFeedOptions configures the feeder that converts elements on the worker.
func WithFeedOptions(opts ...feed.Option) Option {
	return func(o *options) { o.feedOptions = append(o.feedOptions, opts...) }
}

// WithSkipInconvertible drops elements that cannot reach the requested type
// instead of failing the stream.
func WithSkipInconvertible(skip bool) Option {
	return func(o *options) { o.skipInconvertible = skip }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

type item struct {
	value any
	src   any
	end   bool
}

// Bridge is a parser.Iterator over the output of a push parser. Next and
// Close must be called from one goroutine.
type Bridge struct {
	parser    parser.PushParser
	src       any
	shape     rdf.Shape
	valueType reflect.Type
	skip      bool
	logger    *zap.Logger

	queue   chan item
	done    chan struct{}
	abort   chan struct{}
	aborted atomic.Bool
	cancel  context.CancelFunc

	mu  sync.Mutex
	err error

	current   any
	exhausted bool
	closeOnce sync.Once
}

// New starts a worker on pool that runs p over src, delivering elements of
// valueType as shape. The returned Bridge must be closed.
func New(ctx context.Context, pool *Pool, p parser.PushParser, src any, shape rdf.Shape, valueType reflect.Type, opts ...Option) (*Bridge, error) {
	o := options{capacity: DefaultQueueCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get()
	}
	if pool == nil {
		pool = DefaultPool()
	}
	if shape != rdf.ShapeTriple && shape != rdf.ShapeQuad {
		return nil, errors.Newf(errors.ErrorTypeConfig, "bridge requires a triple or quad shape, got %s", shape)
	}

	b := &Bridge{
		parser:    p,
		src:       src,
		shape:     shape,
		valueType: valueType,
		skip:      o.skipInconvertible,
		logger:    o.logger.With(zap.String("component", "bridge"), zap.String("source", parser.Describe(src))),
		queue:     make(chan item, o.capacity),
		done:      make(chan struct{}),
		abort:     make(chan struct{}),
	}

	feeder, err := feed.NewFeeder(&queueListener{bridge: b}, o.feedOptions...)
	if err != nil {
		return nil, err
	}

	wctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	pool.Go(wctx, func(ctx context.Context, acquireErr error) {
		b.run(ctx, feeder, acquireErr)
	})
	return b, nil
}

// Next blocks until the worker produces an element or finishes. A recorded
// failure is returned once every element queued before it was consumed.
func (b *Bridge) Next(ctx context.Context) (any, bool, error) {
	if b.exhausted || b.aborted.Load() {
		return nil, false, b.failure()
	}

	metrics.BridgeQueueDepth.Observe(float64(len(b.queue)))
	select {
	case it := <-b.queue:
		return b.take(it)
	case <-b.done:
		// the worker may have queued its last items before exiting
		select {
		case it := <-b.queue:
			return b.take(it)
		default:
			b.exhausted = true
			return nil, false, b.failure()
		}
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (b *Bridge) take(it item) (any, bool, error) {
	if it.end {
		b.exhausted = true
		return nil, false, b.failure()
	}
	b.current = it.src
	return it.value, true, nil
}

// Source returns the source that produced the last element.
func (b *Bridge) Source() any {
	return b.current
}

// Close stops the worker and returns once it has acknowledged. It is safe to
// call more than once.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		b.aborted.Store(true)
		close(b.abort)
		b.cancel()
		for {
			select {
			case <-b.queue:
			case <-b.done:
				return
			}
		}
	})
	return nil
}

func (b *Bridge) failure() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// fail records err, joining it to an earlier failure unless equivalent.
func (b *Bridge) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.err == nil:
		b.err = err
	case stderrors.Is(b.err, err) || b.err.Error() == err.Error():
	default:
		b.err = stderrors.Join(b.err, err)
	}
}

func (b *Bridge) run(ctx context.Context, feeder *feed.Feeder, acquireErr error) {
	defer close(b.done)

	if acquireErr != nil {
		if !b.aborted.Load() {
			b.fail(acquireErr)
			b.end(ctx)
		}
		return
	}

	metrics.BridgesActive.Inc()
	defer metrics.BridgesActive.Dec()

	ctx, span := tracer.Start(ctx, "bridge.worker", trace.WithAttributes(
		attribute.String("source", parser.Describe(b.src)),
		attribute.String("shape", b.shape.String()),
		attribute.String("value_type", b.valueType.String()),
	))
	defer span.End()

	err := b.parse(ctx, feeder)
	if b.aborted.Load() {
		span.AddEvent("aborted")
		b.logger.Debug("bridge worker aborted")
		return
	}
	if err != nil {
		var typed *errors.Error
		if !stderrors.As(err, &typed) {
			err = errors.Wrap(err, errors.ErrorTypeParse, fmt.Sprintf("parsing %s", parser.Describe(b.src)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.fail(err)
	}
	b.end(ctx)
}

func (b *Bridge) parse(ctx context.Context, feeder *feed.Feeder) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrorTypeInternal, "parser panic: %v", r)
		}
	}()
	return b.parser.Parse(ctx, b.src, feeder)
}

// end enqueues the sentinel unless the consumer is gone.
func (b *Bridge) end(ctx context.Context) {
	select {
	case b.queue <- item{end: true}:
	case <-b.abort:
	case <-ctx.Done():
	}
}

func (b *Bridge) put(ctx context.Context, it item) error {
	if b.aborted.Load() {
		return errAborted
	}
	select {
	case b.queue <- it:
		return nil
	case <-b.abort:
		return errAborted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// queueListener is the feed.Listener run on the worker.
type queueListener struct {
	bridge  *Bridge
	sources []any
}

func (l *queueListener) TripleType() reflect.Type {
	if l.bridge.shape == rdf.ShapeTriple {
		return l.bridge.valueType
	}
	return nil
}

func (l *queueListener) QuadType() reflect.Type {
	if l.bridge.shape == rdf.ShapeQuad {
		return l.bridge.valueType
	}
	return nil
}

func (l *queueListener) Triple(ctx context.Context, v any) error {
	return l.bridge.put(ctx, item{value: v, src: l.current()})
}

func (l *queueListener) Quad(ctx context.Context, v any) error {
	return l.bridge.put(ctx, item{value: v, src: l.current()})
}

func (l *queueListener) Start(_ context.Context, src any) error {
	if l.bridge.aborted.Load() {
		return errAborted
	}
	l.sources = append(l.sources, src)
	return nil
}

func (l *queueListener) FinishSource(context.Context, any) error {
	if len(l.sources) > 0 {
		l.sources = l.sources[:len(l.sources)-1]
	}
	return nil
}

func (l *queueListener) Finish(context.Context) error { return nil }

func (l *queueListener) OnInconvertibleTriple(_ context.Context, v any, cause error) (bool, error) {
	return l.inconvertible(v, cause)
}

func (l *queueListener) OnInconvertibleQuad(_ context.Context, v any, cause error) (bool, error) {
	return l.inconvertible(v, cause)
}

func (l *queueListener) OnSourceError(context.Context, any, error) bool { return false }

func (l *queueListener) inconvertible(v any, cause error) (bool, error) {
	if l.bridge.aborted.Load() {
		return false, errAborted
	}
	if l.bridge.skip {
		l.bridge.logger.Debug("skipping inconvertible element", zap.String("value_type", fmt.Sprintf("%T", v)))
		return true, nil
	}
	return false, errors.Wrap(cause, errors.ErrorTypeInconvertible,
		fmt.Sprintf("element of %s from %s", reflect.TypeOf(v), parser.Describe(l.bridge.src)))
}

func (l *queueListener) current() any {
	if len(l.sources) == 0 {
		return l.bridge.src
	}
	return l.sources[len(l.sources)-1]
}
