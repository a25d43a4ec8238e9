package parser

import (
	"iter"
	"sync"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/internal/logger"
	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
)

// Registry manages parser registration and lookup by source type
type Registry struct {
	pull   *dispatch.Dispatcher[PullParser]
	push   *dispatch.Dispatcher[PushParser]
	logger *zap.Logger
}

// NewRegistry creates a parser registry walking hierarchy for source types.
func NewRegistry(hierarchy *dispatch.Hierarchy) *Registry {
	if hierarchy == nil {
		hierarchy = dispatch.NewHierarchy()
	}
	return &Registry{
		pull:   dispatch.New[PullParser](hierarchy),
		push:   dispatch.New[PushParser](hierarchy),
		logger: logger.With(zap.String("component", "parser_registry")),
	}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(nil)
})

// Default returns the lazily created process-wide registry.
func Default() *Registry {
	return defaultRegistry()
}

// Register adds p under each of its source types. A parser implementing
// both PullParser and PushParser is registered as both.
func (r *Registry) Register(p Parser) {
	pull, isPull := p.(PullParser)
	push, isPush := p.(PushParser)
	for _, t := range p.SourceTypes() {
		if isPull {
			r.pull.Register(t, pull)
		}
		if isPush {
			r.push.Register(t, push)
		}
	}
	r.logger.Debug("parser registered",
		zap.Stringer("value_type", p.ValueType()),
		zap.Stringer("shape", p.Shape()),
		zap.Bool("pull", isPull),
		zap.Bool("push", isPush))
}

// Unregister removes p everywhere.
func (r *Registry) Unregister(p Parser) {
	r.pull.UnregisterIf(func(x PullParser) bool { return Parser(x) == p })
	r.push.UnregisterIf(func(x PushParser) bool { return Parser(x) == p })
}

// PullParsers yields the pull parsers accepting src, most specific first.
func (r *Registry) PullParsers(src any) iter.Seq[PullParser] {
	return r.pull.Lookup(src, func(p PullParser) bool { return p.Accepts(src) })
}

// PushParsers yields the push parsers accepting src, most specific first.
func (r *Registry) PushParsers(src any) iter.Seq[PushParser] {
	return r.push.Lookup(src, func(p PushParser) bool { return p.Accepts(src) })
}

// FindPullParser returns the first pull parser accepting src.
func (r *Registry) FindPullParser(src any) (PullParser, bool) {
	return r.pull.First(src, func(p PullParser) bool { return p.Accepts(src) })
}

// FindPushParser returns the first push parser accepting src.
func (r *Registry) FindPushParser(src any) (PushParser, bool) {
	return r.push.First(src, func(p PushParser) bool { return p.Accepts(src) })
}

// Parsers returns every registered parser once.
func (r *Registry) Parsers() []Parser {
	seen := make(map[Parser]struct{})
	var out []Parser
	for _, p := range r.pull.Handlers() {
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	for _, p := range r.push.Handlers() {
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
