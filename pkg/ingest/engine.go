// Package ingest composes parser dispatch, conversion, the push-to-pull
// bridge and the feeder into the two entry points callers use: Iterate for
// pull consumption and Parse for push consumption.
package ingest

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/internal/logger"
	"github.com/aleksaelezovic/rdfstream/pkg/bridge"
	"github.com/aleksaelezovic/rdfstream/pkg/convert"
	"github.com/aleksaelezovic/rdfstream/pkg/convert/rdfconv"
	"github.com/aleksaelezovic/rdfstream/pkg/feed"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
)

var tracer = otel.Tracer("rdfstream.ingest")

// Engine routes sources to parsers and parser output to consumers. An
// Engine is safe for concurrent use; each Iterate or Parse call keeps its
// own state.
type Engine struct {
	parsers    *parser.Registry
	converters *convert.Registry
	normalizer parser.Normalizer
	pool       *bridge.Pool
	lifter     feed.QuadLifter
	splitter   feed.QuadSplitter

	queueCapacity     int
	skipInconvertible bool
	logger            *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithParsers sets the parser registry; parser.Default otherwise.
func WithParsers(r *parser.Registry) Option {
	return func(e *Engine) { e.parsers = r }
}

// WithConverters sets the converter registry. Without it the engine uses
// convert.Default with the rdfconv converters registered.
func WithConverters(r *convert.Registry) Option {
	return func(e *Engine) { e.converters = r }
}

// WithNormalizer sets the source normalizer; parser.Identity otherwise.
func WithNormalizer(n parser.Normalizer) Option {
	return func(e *Engine) { e.normalizer = n }
}

// WithPool sets the worker pool used by bridges; bridge.DefaultPool otherwise.
func WithPool(p *bridge.Pool) Option {
	return func(e *Engine) { e.pool = p }
}

// WithLifter sets how triples reach quad-only consumers. The default lifts
// *rdf.Triple into the default graph; nil disables lifting.
func WithLifter(l feed.QuadLifter) Option {
	return func(e *Engine) { e.lifter = l }
}

// WithSplitter sets how quads reach triple-only consumers. Without one,
// quads are downgraded by conversion.
func WithSplitter(s feed.QuadSplitter) Option {
	return func(e *Engine) { e.splitter = s }
}

// WithQueueCapacity sets the bridge queue bound.
func WithQueueCapacity(n int) Option {
	return func(e *Engine) { e.queueCapacity = n }
}

// WithSkipInconvertible makes iterators drop elements that cannot reach the
// requested type instead of failing.
func WithSkipInconvertible(skip bool) Option {
	return func(e *Engine) { e.skipInconvertible = skip }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

var registerDefaultConverters sync.Once

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		lifter:        feed.DefaultGraphLifter(),
		queueCapacity: bridge.DefaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.parsers == nil {
		e.parsers = parser.Default()
	}
	if e.converters == nil {
		registerDefaultConverters.Do(func() {
			rdfconv.Register(convert.Default())
		})
		e.converters = convert.Default()
	}
	if e.normalizer == nil {
		e.normalizer = parser.Identity
	}
	if e.pool == nil {
		e.pool = bridge.DefaultPool()
	}
	if e.logger == nil {
		e.logger = logger.Get()
	}
	e.logger = e.logger.With(zap.String("component", "ingest"))
	return e
}

// Parsers returns the parser registry.
func (e *Engine) Parsers() *parser.Registry {
	return e.parsers
}

// Converters returns the converter registry.
func (e *Engine) Converters() *convert.Registry {
	return e.converters
}

func (e *Engine) feedOptions() []feed.Option {
	opts := []feed.Option{
		feed.WithConverters(e.converters),
		feed.WithLogger(e.logger),
	}
	if e.lifter != nil {
		opts = append(opts, feed.WithLifter(e.lifter))
	}
	if e.splitter != nil {
		opts = append(opts, feed.WithSplitter(e.splitter))
	}
	return opts
}
