package convert

import (
	"iter"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/internal/logger"
	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
)

// Registry holds the converter graph. Edges out of a type are found through
// a dispatcher, so converters declared on an interface or on a declared
// supertype apply to every type below it.
type Registry struct {
	dispatcher *dispatch.Dispatcher[Converter]
	generation atomic.Uint64
	logger     *zap.Logger

	resolvers sync.Map // reflect.Type -> *Resolver
}

// NewRegistry creates an empty registry walking hierarchy.
func NewRegistry(hierarchy *dispatch.Hierarchy) *Registry {
	return &Registry{
		dispatcher: dispatch.New[Converter](hierarchy),
		logger:     logger.With(zap.String("component", "converter_registry")),
	}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(dispatch.NewHierarchy())
})

// Default returns the lazily created process-wide registry. Prefer passing
// an explicit registry where one is at hand.
func Default() *Registry {
	return defaultRegistry()
}

// Register adds converters under each of their input types.
func (r *Registry) Register(converters ...Converter) {
	for _, c := range converters {
		for _, in := range c.InputTypes() {
			r.dispatcher.Register(in, c)
		}
		r.logger.Debug("converter registered",
			zap.Stringer("output", c.OutputType()),
			zap.Int("inputs", len(c.InputTypes())))
	}
	r.generation.Add(1)
}

// Unregister removes c from every input type.
func (r *Registry) Unregister(c Converter) {
	r.dispatcher.Unregister(c)
	r.generation.Add(1)
}

// Edges yields the converters applicable to values of type t.
func (r *Registry) Edges(t reflect.Type) iter.Seq[Converter] {
	return r.dispatcher.LookupType(t, nil)
}

// Hierarchy returns the supertype table used for edge lookup.
func (r *Registry) Hierarchy() *dispatch.Hierarchy {
	return r.dispatcher.Hierarchy()
}

// Generation changes whenever the graph changes; resolvers drop their cache
// when they observe a new generation.
func (r *Registry) Generation() uint64 {
	return r.generation.Load() + r.dispatcher.Hierarchy().Generation()
}

// Converters returns every registered converter.
func (r *Registry) Converters() []Converter {
	return r.dispatcher.Handlers()
}

// Resolver returns the registry's shared resolver for target, creating it on
// first use. Sharing keeps resolved paths across feeders and iterators.
func (r *Registry) Resolver(target reflect.Type) *Resolver {
	if res, ok := r.resolvers.Load(target); ok {
		return res.(*Resolver)
	}
	res, _ := r.resolvers.LoadOrStore(target, NewResolver(r, target))
	return res.(*Resolver)
}
