package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfstream/pkg/convert"
	"github.com/aleksaelezovic/rdfstream/pkg/convert/rdfconv"
	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
	"github.com/aleksaelezovic/rdfstream/pkg/feed"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

var tripleType = dispatch.TypeOf[*rdf.Triple]()

func triple(i int) *rdf.Triple {
	return rdf.NewTriple(
		rdf.NewNamedNode(fmt.Sprintf("http://example.org/s%d", i)),
		rdf.NewNamedNode("http://example.org/p"),
		rdf.NewIntegerLiteral(int64(i)))
}

// pushParser emits count elements (forever when count < 0) built by make,
// then returns err.
type pushParser struct {
	count    int
	make     func(i int) any
	err      error
	panicMsg string

	produced atomic.Int64
	released atomic.Bool
}

func (*pushParser) SourceTypes() []reflect.Type { return []reflect.Type{dispatch.TypeOf[string]()} }
func (*pushParser) Accepts(any) bool            { return true }
func (*pushParser) Shape() rdf.Shape            { return rdf.ShapeTriple }
func (*pushParser) ValueType() reflect.Type     { return tripleType }

func (p *pushParser) Parse(ctx context.Context, src any, h parser.Handler) (err error) {
	defer p.released.Store(true)

	if err := h.Start(ctx, src); err != nil {
		return errors.Join(err, h.FinishSource(ctx, src))
	}
	defer func() {
		if ferr := h.FinishSource(ctx, src); err == nil {
			err = ferr
		}
	}()

	for i := 0; p.count < 0 || i < p.count; i++ {
		v := any(triple(i))
		if p.make != nil {
			v = p.make(i)
		}
		cont, err := h.FeedTriple(ctx, v)
		if err != nil {
			return err
		}
		p.produced.Add(1)
		if !cont {
			return nil
		}
	}
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	return p.err
}

func converters() *convert.Registry {
	reg := convert.NewRegistry(dispatch.NewHierarchy())
	rdfconv.Register(reg)
	return reg
}

func newBridge(t *testing.T, p *pushParser, shape rdf.Shape, valueType reflect.Type, opts ...Option) *Bridge {
	t.Helper()
	opts = append([]Option{WithFeedOptions(feed.WithConverters(converters()))}, opts...)
	b, err := New(context.Background(), NewPool(2), p, "doc", shape, valueType, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBridgeDeliversAllThenExhausts(t *testing.T) {
	const k = 100
	p := &pushParser{count: k}
	b := newBridge(t, p, rdf.ShapeTriple, tripleType, WithQueueCapacity(8))

	values, err := parser.Collect(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, values, k)
	for i, v := range values {
		assert.True(t, v.(*rdf.Triple).Equals(triple(i)), "element %d out of order", i)
	}

	v, ok, err := b.Next(context.Background())
	assert.Nil(t, v)
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, "doc", b.Source())
}

func TestBridgeEmptySource(t *testing.T) {
	b := newBridge(t, &pushParser{count: 0}, rdf.ShapeTriple, tripleType)

	_, ok, err := b.Next(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestBridgeCloseStopsProducer(t *testing.T) {
	p := &pushParser{count: -1}
	b := newBridge(t, p, rdf.ShapeTriple, tripleType, WithQueueCapacity(2))

	for range 5 {
		_, ok, err := b.Next(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NoError(t, b.Close())
	assert.True(t, p.released.Load(), "Close returned before the parser let go of its source")

	produced := p.produced.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, produced, p.produced.Load())

	v, ok, err := b.Next(context.Background())
	assert.Nil(t, v)
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.NoError(t, b.Close())
}

func TestBridgeBackpressure(t *testing.T) {
	const capacity = 4
	p := &pushParser{count: -1}
	b := newBridge(t, p, rdf.ShapeTriple, tripleType, WithQueueCapacity(capacity))

	require.Eventually(t, func() bool { return p.produced.Load() >= capacity },
		time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, p.produced.Load(), int64(capacity+1), "producer ran past a full queue")

	const reads = 3
	for i := range reads {
		v, ok, err := b.Next(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, v.(*rdf.Triple).Equals(triple(i)))
	}

	require.Eventually(t, func() bool { return p.produced.Load() >= capacity+reads },
		time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, p.produced.Load(), int64(capacity+reads+1), "producer ran past a full queue")
}

func TestBridgeFailureAfterDrain(t *testing.T) {
	boom := stderrors.New("boom")
	p := &pushParser{count: 3, err: boom}
	b := newBridge(t, p, rdf.ShapeTriple, tripleType)

	values, err := parser.Collect(context.Background(), b)
	assert.Len(t, values, 3)
	require.ErrorIs(t, err, boom)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
}

func TestBridgeTypedFailureIsKept(t *testing.T) {
	p := &pushParser{count: 1, err: errors.New(errors.ErrorTypeSource, "unreadable")}
	b := newBridge(t, p, rdf.ShapeTriple, tripleType)

	_, err := parser.Collect(context.Background(), b)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))
}

func TestBridgeRecoversParserPanic(t *testing.T) {
	p := &pushParser{count: 2, panicMsg: "parser bug"}
	b := newBridge(t, p, rdf.ShapeTriple, tripleType)

	values, err := parser.Collect(context.Background(), b)
	assert.Len(t, values, 2)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
	assert.Contains(t, err.Error(), "parser bug")
}

func TestBridgeConvertsOnWorker(t *testing.T) {
	g := rdf.NewNamedNode("http://example.org/g")
	p := &pushParser{count: 3, make: func(i int) any { return triple(i).InGraph(g) }}
	b := newBridge(t, p, rdf.ShapeTriple, tripleType)

	values, err := parser.Collect(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.True(t, values[2].(*rdf.Triple).Equals(triple(2)))
}

func TestBridgeLiftsForQuads(t *testing.T) {
	p := &pushParser{count: 2}
	b := newBridge(t, p, rdf.ShapeQuad, dispatch.TypeOf[*rdf.Quad](),
		WithFeedOptions(feed.WithLifter(feed.DefaultGraphLifter())))

	values, err := parser.Collect(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.True(t, rdf.IsDefaultGraph(values[0].(*rdf.Quad).Graph))
}

func TestBridgeInconvertible(t *testing.T) {
	junk := func(i int) any {
		if i == 1 {
			return "junk"
		}
		return triple(i)
	}

	b := newBridge(t, &pushParser{count: 3, make: junk}, rdf.ShapeTriple, tripleType)
	values, err := parser.Collect(context.Background(), b)
	assert.Len(t, values, 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInconvertible))

	b = newBridge(t, &pushParser{count: 3, make: junk}, rdf.ShapeTriple, tripleType, WithSkipInconvertible(true))
	values, err = parser.Collect(context.Background(), b)
	require.NoError(t, err)
	assert.Len(t, values, 2)
}

func TestBridgeRejectsUnknownShape(t *testing.T) {
	_, err := New(context.Background(), NewPool(1), &pushParser{}, "doc", rdf.ShapeUnknown, tripleType)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestBridgeNextHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := &pushParser{count: 1, make: func(int) any {
		<-block
		return triple(0)
	}}
	b := newBridge(t, p, rdf.ShapeTriple, tripleType)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := b.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFailMergesEquivalentErrors(t *testing.T) {
	b := &Bridge{}
	first := stderrors.New("first")

	b.fail(first)
	b.fail(first)
	b.fail(stderrors.New("first"))
	assert.Same(t, first, b.failure())

	second := stderrors.New("second")
	b.fail(second)
	assert.ErrorIs(t, b.failure(), first)
	assert.ErrorIs(t, b.failure(), second)
}

func TestPoolBoundsWorkers(t *testing.T) {
	pool := NewPool(1)
	assert.Equal(t, 1, pool.Size())
	assert.Equal(t, DefaultPoolSize(), NewPool(0).Size())

	hold := make(chan struct{})
	pool.Go(context.Background(), func(context.Context, error) { <-hold })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := make(chan error, 1)
	pool.Go(ctx, func(_ context.Context, acquireErr error) { got <- acquireErr })

	assert.ErrorIs(t, <-got, context.Canceled)
	close(hold)
	pool.Wait()
}
